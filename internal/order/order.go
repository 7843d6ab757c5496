// Package order creates the payment-gateway order for a persona's cart.
package order

import (
	"context"
	"log/slog"
	"net/http"

	"diagflow/internal/actor"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/transport"
)

const createPath = "/gateway/v2/CreateOrder"

// Notes mirrors the notes object the gateway echoes back.
type Notes struct {
	UserID   string
	Mobile   string
	SlotGUID string
	Present  bool
}

// Order is the decoded CreateOrder response. Amounts are in paise.
type Order struct {
	Message   string
	ID        string
	Amount    int64
	AmountDue int64
	Currency  string
	Status    string
	KeyID     string
	Mobile    string
	Notes     Notes
}

type createRequest struct {
	UserID string `json:"user_id"`
}

type Service struct {
	doer    transport.Doer
	actors  actor.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// Create places an order for persona's cart and records the order id.
// Field-level expectations are left to the validator.
func (s *Service) Create(ctx context.Context, persona actor.Persona) (Order, error) {
	token, err := s.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return Order{}, err
	}
	userID, err := s.actors.Get(ctx, persona, actor.UserID)
	if err != nil {
		return Order{}, err
	}

	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "create_order",
		Method: http.MethodPost,
		Path:   createPath,
		Auth:   transport.AuthBearer,
		Token:  token,
		Body:   createRequest{UserID: userID},
	})
	if err != nil {
		return Order{}, err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return Order{}, err
	}
	if err := resp.ExpectSuccess(); err != nil {
		return Order{}, err
	}
	id, err := resp.RequireString("data.id")
	if err != nil {
		return Order{}, err
	}

	notes := resp.Get("data.notes")
	o := Order{
		Message:   resp.Get("msg").String(),
		ID:        id,
		Amount:    resp.Get("data.amount").Int(),
		AmountDue: resp.Get("data.amount_due").Int(),
		Currency:  resp.Get("data.currency").String(),
		Status:    resp.Get("data.status").String(),
		KeyID:     resp.Get("data.key_id").String(),
		Mobile:    resp.Get("data.mobile").String(),
		Notes: Notes{
			UserID:   notes.Get("user_id").String(),
			Mobile:   notes.Get("mobile").String(),
			SlotGUID: notes.Get("slot_guid").String(),
			Present:  notes.IsObject(),
		},
	}

	if err := s.actors.Set(ctx, persona, actor.OrderID, o.ID); err != nil {
		return Order{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementOrdersCreated()
	}
	s.logger.InfoContext(ctx, "order created",
		"persona", persona,
		"order_id", o.ID,
		"amount", o.Amount,
	)
	return o, nil
}
