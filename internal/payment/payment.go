package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"diagflow/internal/actor"
	"diagflow/internal/platform/config"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	verifyPath = "/gateway/v2/VerifyPayment"

	// MaxOnlineAmount is the largest cart total, in rupees, that may be paid online.
	MaxOnlineAmount = 500000
)

// Attempt is the callback payload a checkout page would receive from the gateway.
type Attempt struct {
	OrderCreationID string
	PaymentID       string
	OrderID         string
	Signature       string
	Mobile          string
	UserID          string
}

// CheckLocally runs the checks a merchant performs before trusting a
// callback: order ids agree, the signature is valid, and the user is known.
func CheckLocally(secret string, a Attempt) error {
	if a.OrderCreationID != a.OrderID {
		return dErrors.Newf(dErrors.CodeValidation, "order id mismatch: created %q, paid %q", a.OrderCreationID, a.OrderID)
	}
	if !VerifySignature(secret, a.OrderID, a.PaymentID, a.Signature) {
		return dErrors.New(dErrors.CodeValidation, "invalid payment signature")
	}
	if a.Mobile == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "mobile is required")
	}
	if a.UserID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	return nil
}

// Verification is what the backend reports after verifying a payment.
type Verification struct {
	Attempt        Attempt
	Message        string
	BackendOrderID string
	// EchoedPaymentID is the payment id the backend booked, when it reports one.
	EchoedPaymentID string
	MembershipOrder bool
	MembershipPrice int64
}

type verifyRequest struct {
	OrderCreationID   string `json:"orderCreationId"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Mobile            int64  `json:"mobile"`
	UserID            string `json:"user_id"`
}

type Service struct {
	doer     transport.Doer
	actors   actor.Store
	settings config.Settings
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now when minting payment ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(doer transport.Doer, actors actor.Store, settings config.Settings, opts ...Option) *Service {
	s := &Service{
		doer:     doer,
		actors:   actors,
		settings: settings,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify simulates a successful payment for persona's order, checks it
// locally and then submits it to the backend.
func (s *Service) Verify(ctx context.Context, persona actor.Persona) (Verification, error) {
	st, err := actor.Snapshot(ctx, s.actors, persona)
	if err != nil {
		return Verification{}, err
	}
	if st.Token == "" || st.OrderID == "" {
		return Verification{}, dErrors.Newf(dErrors.CodeContextMissing, "%s has no session or order to pay for", persona)
	}
	if err := checkAmountLimit(st.TotalAmount); err != nil {
		return Verification{}, err
	}
	secret, err := s.settings.Lookup(config.KeyRazorpaySecret)
	if err != nil {
		return Verification{}, err
	}

	paymentID := fmt.Sprintf("pay_%d", s.now().UnixMilli())
	attempt := Attempt{
		OrderCreationID: st.OrderID,
		PaymentID:       paymentID,
		OrderID:         st.OrderID,
		Signature:       Sign(secret, st.OrderID, paymentID),
		Mobile:          st.Mobile,
		UserID:          st.UserID,
	}
	if err := CheckLocally(secret, attempt); err != nil {
		return Verification{}, err
	}
	mobile, err := strconv.ParseInt(attempt.Mobile, 10, 64)
	if err != nil {
		return Verification{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "mobile is not numeric")
	}

	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "verify_payment",
		Method: http.MethodPost,
		Path:   verifyPath,
		Auth:   transport.AuthRaw,
		Token:  st.Token,
		Body: verifyRequest{
			OrderCreationID:   attempt.OrderCreationID,
			RazorpayPaymentID: attempt.PaymentID,
			RazorpayOrderID:   attempt.OrderID,
			RazorpaySignature: attempt.Signature,
			Mobile:            mobile,
			UserID:            attempt.UserID,
		},
	})
	if err != nil {
		return Verification{}, err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return Verification{}, err
	}
	if err := resp.ExpectSuccess(); err != nil {
		return Verification{}, err
	}

	v := Verification{
		Attempt:         attempt,
		Message:         resp.Get("msg").String(),
		BackendOrderID:  resp.Get("data.0.OrderItems.0.order_id").String(),
		EchoedPaymentID: resp.Get("data.0.OrderItems.0.payment_id").String(),
		MembershipOrder: resp.Get("data.0.membershipDetails.isMembershipOrder").Bool(),
		MembershipPrice: resp.Get("data.0.membershipDetails.membershipPrice").Int(),
	}
	if s.metrics != nil {
		s.metrics.IncrementPaymentsVerified()
	}
	s.logger.InfoContext(ctx, "payment verified",
		"persona", persona,
		"payment_id", paymentID,
		"backend_order_id", v.BackendOrderID,
		"membership", v.MembershipOrder,
	)
	return v, nil
}

func checkAmountLimit(total string) error {
	if total == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(total, 64)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "cart total is not numeric")
	}
	if amount > MaxOnlineAmount {
		return dErrors.Newf(dErrors.CodeValidation, "cart total %.2f exceeds the online payment limit of %d", amount, MaxOnlineAmount)
	}
	return nil
}
