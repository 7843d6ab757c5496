package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, registries and the transport
// return these (optionally wrapped) so flow steps can translate them into domain
// errors.
//
// These represent factual states, not expectation failures:
// - ErrNotFound: key, title or field does not exist
// - ErrInvalidState: a state machine was driven out of order
// - ErrUnavailable: backend or store temporarily unavailable
//
// For expectation failures (status, payload shape, cross-step mismatch), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
