package auth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const addUserPath = "/users/addUser"

var (
	firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Kabir", "Anaya", "Vihaan", "Saanvi"}
	lastNames  = []string{"Sharma", "Reddy", "Iyer", "Patel", "Nair", "Gupta", "Rao", "Menon"}
	genders    = []string{"male", "female"}
)

// RandomRegistration builds a throwaway profile with a 10-digit mobile that
// starts with 9.
func RandomRegistration() Registration {
	first := firstNames[rand.IntN(len(firstNames))]
	last := lastNames[rand.IntN(len(lastNames))]
	local := strings.ToLower(first) + "." + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return Registration{
		FirstName: first,
		LastName:  last,
		Mobile:    fmt.Sprintf("9%09d", rand.IntN(1_000_000_000)),
		Email:     local + "@example.com",
		Gender:    genders[rand.IntN(len(genders))],
	}
}

// Register creates a new user and records its mobile and ids under persona.
// The caller logs the persona in afterwards with the recorded mobile.
func (s *Service) Register(ctx context.Context, persona actor.Persona, reg Registration) (string, error) {
	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "add_user",
		Method: http.MethodPost,
		Path:   addUserPath,
		Body:   reg,
	})
	if err != nil {
		return "", err
	}
	if err := resp.Expect(http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}
	userID, err := resp.RequireString("data.guid")
	if err != nil {
		return "", err
	}
	if got := resp.Get("data.mobile").String(); got != "" && got != reg.Mobile {
		return "", dErrors.Newf(dErrors.CodeValidation,
			"registered mobile %q does not match submitted %q", got, reg.Mobile)
	}

	err = actor.SetAll(ctx, s.actors, persona, map[actor.Field]string{
		actor.Mobile:    reg.Mobile,
		actor.UserID:    userID,
		actor.FirstName: reg.FirstName,
		actor.LastName:  reg.LastName,
	})
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "user registered",
		"persona", persona,
		"user_id", userID,
		"numeric_id", resp.Get("data.id").Int(),
	)
	return userID, nil
}
