package auth

import (
	"fmt"

	"diagflow/internal/actor"
	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

// Session tracks one login attempt through the state machine.
type Session struct {
	Persona  actor.Persona
	Mobile   string
	State    State
	Identity Identity
	// Err holds the failure that moved the session to FAILED.
	Err error
}

func newSession(persona actor.Persona, mobile string) *Session {
	return &Session{Persona: persona, Mobile: mobile, State: StateInit}
}

func (s *Session) advance(to State) error {
	if next[s.State] != to {
		return s.fail(dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeAuthFailed,
			fmt.Sprintf("cannot move from %s to %s", s.State, to)))
	}
	s.State = to
	return nil
}

// fail moves the session to FAILED and returns err tagged as an auth failure.
func (s *Session) fail(err error) error {
	if s.State == StateFailed {
		return s.Err
	}
	from := s.State
	s.State = StateFailed
	s.Err = dErrors.Wrap(err, dErrors.CodeAuthFailed,
		fmt.Sprintf("%s login failed in %s", s.Persona, from))
	return s.Err
}
