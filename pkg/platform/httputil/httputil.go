// Package httputil writes the JSON envelopes the diagnostics API answers with:
// {"success": bool, "msg": string, "data": ...}.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

// Envelope is the response body of every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Msg: msg, Data: data})
}

// WriteError maps err to a status and a failed envelope. Internal errors do
// not echo their message.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	env := Envelope{Success: false, Error: code}
	if status != http.StatusInternalServerError {
		env.Msg = message(err)
	}
	WriteJSON(w, status, env)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrInvalidState):
		return http.StatusConflict, "conflict"
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest, "bad_request"
	case dErrors.CodeAuthFailed:
		return http.StatusUnauthorized, "unauthorized"
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity, "validation_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func message(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// DecodeJSON reads r's body into dst, rejecting malformed JSON as bad input.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed request body")
	}
	return nil
}
