// Package domainerrors carries the failure taxonomy of a verification run.
// Every error a flow step returns can be classified with HasCode or CodeOf.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// CodeContextMissing: a persona field or registry title was read before it was written.
	CodeContextMissing Code = "context_missing"
	// CodeHTTPStatus: the backend answered with a status the step does not accept.
	CodeHTTPStatus Code = "http_status"
	// CodePayloadShape: an expected list/map/field was null or absent in a response.
	CodePayloadShape Code = "payload_shape"
	// CodeValidation: a value recorded earlier disagrees with a value observed later.
	CodeValidation Code = "validation"
	// CodeNoAvailableSlot: the slot window held no slot with positive availability.
	CodeNoAvailableSlot Code = "no_available_slot"
	// CodeAuthFailed: the OTP flow ended in the FAILED state.
	CodeAuthFailed Code = "auth_failed"
	// CodeInvalidInput: the caller passed arguments the step cannot work with.
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal"
)

// Error is a coded failure with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode reports the failure class.
func (e *Error) ErrorCode() Code { return e.Code }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

type coder interface {
	ErrorCode() Code
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if c, ok := err.(coder); ok && c.ErrorCode() == code {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				if HasCode(inner, code) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}
