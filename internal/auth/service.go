// Package auth drives the OTP login and new-user registration flows and binds
// the resulting identity into the actor store.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"diagflow/internal/actor"
	"diagflow/internal/platform/config"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const otpPath = "/otps/getOtp"

// Service runs the login state machine against the backend. It performs no
// retries; the transport owns that policy.
type Service struct {
	doer     transport.Doer
	actors   actor.Store
	settings config.Settings
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(doer transport.Doer, actors actor.Store, settings config.Settings, opts ...Option) *Service {
	s := &Service{
		doer:     doer,
		actors:   actors,
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login requests and verifies an OTP for mobile, then writes the issued
// identity into the store under persona. The returned session reflects the
// final state even when an error is returned.
func (s *Service) Login(ctx context.Context, persona actor.Persona, mobile string) (*Session, error) {
	sess := newSession(persona, mobile)
	if mobile == "" {
		return sess, sess.fail(dErrors.New(dErrors.CodeInvalidInput, "mobile is required"))
	}

	countryCode, err := s.settings.Lookup(config.KeyCountryCode)
	if err != nil {
		return sess, sess.fail(err)
	}
	otp, err := s.settings.Lookup(config.KeyStaticOTP)
	if err != nil {
		return sess, sess.fail(err)
	}

	if err := s.requestOTP(ctx, sess, countryCode); err != nil {
		return sess, err
	}
	resp, err := s.verifyOTP(ctx, sess, countryCode, otp)
	if err != nil {
		return sess, err
	}
	if err := s.issue(ctx, sess, resp); err != nil {
		return sess, err
	}

	s.logger.InfoContext(ctx, "login complete",
		"persona", persona,
		"user_id", sess.Identity.UserID,
	)
	return sess, nil
}

func (s *Service) requestOTP(ctx context.Context, sess *Session, countryCode string) error {
	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "otp_request",
		Method: http.MethodPost,
		Path:   otpPath,
		Body:   otpRequest{Mobile: sess.Mobile, CountryCode: countryCode},
	})
	if err != nil {
		return sess.fail(err)
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return sess.fail(err)
	}
	return sess.advance(StateOTPRequested)
}

func (s *Service) verifyOTP(ctx context.Context, sess *Session, countryCode, otp string) (*transport.Response, error) {
	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "otp_verify",
		Method: http.MethodPost,
		Path:   otpPath,
		Body:   otpRequest{Mobile: sess.Mobile, CountryCode: countryCode, OTP: otp},
	})
	if err != nil {
		return nil, sess.fail(err)
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return nil, sess.fail(err)
	}
	if err := sess.advance(StateOTPVerified); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) issue(ctx context.Context, sess *Session, resp *transport.Response) error {
	id := Identity{
		Token:     resp.Get("data.access_token").String(),
		FirstName: resp.Get("data.first_name").String(),
		LastName:  resp.Get("data.last_name").String(),
		Mobile:    resp.Get("data.mobile").String(),
		UserID:    resp.Get("data.guid").String(),
	}
	if id.Token == "" {
		return sess.fail(dErrors.New(dErrors.CodePayloadShape, "verify response carries no access token"))
	}
	if id.Mobile != sess.Mobile {
		return sess.fail(dErrors.Newf(dErrors.CodeValidation,
			"verify response mobile %q does not match requested %q", id.Mobile, sess.Mobile))
	}

	err := actor.SetAll(ctx, s.actors, sess.Persona, map[actor.Field]string{
		actor.Token:     id.Token,
		actor.FirstName: id.FirstName,
		actor.LastName:  id.LastName,
		actor.Mobile:    id.Mobile,
		actor.UserID:    id.UserID,
	})
	if err != nil {
		return sess.fail(err)
	}
	sess.Identity = id
	return sess.advance(StateTokenIssued)
}
