// Package address creates a persona's collection address and reads it back.
package address

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	addPath    = "/address/addAddress"
	byUserPath = "/address/getAddressByUserId/"
)

// Address is the postal address a sample is collected from.
type Address struct {
	Line1     string `json:"address_line1"      yaml:"line1"`
	Line2     string `json:"address_line2,omitempty" yaml:"line2"`
	City      string `json:"city"               yaml:"city"`
	State     string `json:"state"              yaml:"state"`
	Pincode   string `json:"pincode"            yaml:"pincode"`
	Latitude  string `json:"latitude,omitempty"  yaml:"latitude"`
	Longitude string `json:"longitude,omitempty" yaml:"longitude"`
}

type addRequest struct {
	UserID string `json:"user_id"`
	Address
	IsDefault bool `json:"is_default"`
}

// Stored is an address as the backend lists it.
type Stored struct {
	GUID    string
	UserID  string
	Line1   string
	City    string
	Pincode string
}

type Service struct {
	doer   transport.Doer
	actors actor.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(doer transport.Doer, actors actor.Store, opts ...Option) *Service {
	s := &Service{
		doer:   doer,
		actors: actors,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates addr as persona's default address, reads the persona's
// addresses back and records the newest one's guid as the address id.
func (s *Service) Add(ctx context.Context, persona actor.Persona, addr Address) (Stored, error) {
	token, err := s.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return Stored{}, err
	}
	userID, err := s.actors.Get(ctx, persona, actor.UserID)
	if err != nil {
		return Stored{}, err
	}

	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "add_address",
		Method: http.MethodPost,
		Path:   addPath,
		Auth:   transport.AuthBearer,
		Token:  token,
		Body:   addRequest{UserID: userID, Address: addr, IsDefault: true},
	})
	if err != nil {
		return Stored{}, err
	}
	if err := resp.Expect(http.StatusOK, http.StatusCreated); err != nil {
		return Stored{}, err
	}

	list, err := s.ListByUser(ctx, persona)
	if err != nil {
		return Stored{}, err
	}
	if len(list) == 0 {
		return Stored{}, dErrors.Newf(dErrors.CodePayloadShape, "%s has no addresses after create", persona)
	}
	latest := list[len(list)-1]
	if err := s.actors.Set(ctx, persona, actor.AddressID, latest.GUID); err != nil {
		return Stored{}, err
	}
	s.logger.InfoContext(ctx, "address recorded", "persona", persona, "address_id", latest.GUID)
	return latest, nil
}

// ListByUser returns every address of persona's user in backend order.
func (s *Service) ListByUser(ctx context.Context, persona actor.Persona) ([]Stored, error) {
	token, err := s.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}
	userID, err := s.actors.Get(ctx, persona, actor.UserID)
	if err != nil {
		return nil, err
	}
	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "address_by_user",
		Method: http.MethodGet,
		Path:   byUserPath + url.PathEscape(userID),
		Auth:   transport.AuthBearer,
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return nil, err
	}
	rows, err := resp.Array("data")
	if err != nil {
		return nil, err
	}
	out := make([]Stored, 0, len(rows))
	for _, row := range rows {
		guid := row.Get("guid").String()
		if guid == "" {
			guid = row.Get("_id").String()
		}
		if guid == "" {
			return nil, dErrors.Newf(dErrors.CodePayloadShape, "address row without guid for %s", persona)
		}
		out = append(out, Stored{
			GUID:    guid,
			UserID:  row.Get("user_id").String(),
			Line1:   row.Get("address_line1").String(),
			City:    row.Get("city").String(),
			Pincode: row.Get("pincode").String(),
		})
	}
	return out, nil
}
