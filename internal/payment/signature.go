// Package payment simulates the gateway's payment callback for an order and
// submits it to the backend for verification.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, orderID|paymentID)), the gateway's
// payment signature scheme.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches orderID and paymentID.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, orderID, paymentID)), []byte(signature))
}
