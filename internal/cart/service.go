package cart

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
)

const addCartPath = "/carts/v2/addCart"

// Line is a cart row as the backend reports it back.
type Line struct {
	ProductID  string
	TestName   string
	Price      float64
	Quantity   int64
	BrandID    string
	LocationID string
}

// Cart is the backend's view of a persona's cart after a submission.
type Cart struct {
	GUID        string
	NumericID   string
	UserID      string
	TotalAmount float64
	SlotGUID    string
	Lines       []Line
}

// Service submits cart payloads and records the resulting cart ids.
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

// Submit posts payload for persona and stores cart guid, numeric id and total.
func (s *Service) Submit(ctx context.Context, persona actor.Persona, payload Payload) (*Cart, error) {
	c, err := s.post(ctx, persona, payload)
	if err != nil {
		return nil, err
	}
	err = actor.SetAll(ctx, s.actors, persona, map[actor.Field]string{
		actor.CartGUID:      c.GUID,
		actor.CartNumericID: c.NumericID,
		actor.TotalAmount:   strconv.FormatFloat(c.TotalAmount, 'f', -1, 64),
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "cart submitted",
		"persona", persona,
		"cart_guid", c.GUID,
		"lines", len(c.Lines),
		"total", c.TotalAmount,
	)
	return c, nil
}

// AttachSlot re-posts payload carrying slotGUID. The caller compares the
// returned SlotGUID against the one it sent.
func (s *Service) AttachSlot(ctx context.Context, persona actor.Persona, payload Payload, slotGUID string) (*Cart, error) {
	payload.SlotGUID = slotGUID
	c, err := s.post(ctx, persona, payload)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "slot attached to cart",
		"persona", persona,
		"slot_guid", c.SlotGUID,
	)
	return c, nil
}

func (s *Service) post(ctx context.Context, persona actor.Persona, payload Payload) (*Cart, error) {
	token, err := s.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}
	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "add_cart",
		Method: http.MethodPost,
		Path:   addCartPath,
		Auth:   transport.AuthRaw,
		Token:  token,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return decodeCart(resp)
}

func decodeCart(resp *transport.Response) (*Cart, error) {
	guid, err := resp.RequireString("data.guid")
	if err != nil {
		return nil, err
	}
	c := &Cart{
		GUID:        guid,
		NumericID:   resp.Get("data.id").String(),
		UserID:      resp.Get("data.user_id").String(),
		TotalAmount: firstNumber(resp, "data.total_amount", "total_amount"),
		SlotGUID:    resp.Get("data.slot_guid").String(),
	}

	rows, err := resp.Array("data.cart_items")
	if err != nil {
		if rows, err = resp.Array("data.product_details"); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		c.Lines = append(c.Lines, Line{
			ProductID:  row.Get("product_id").String(),
			TestName:   row.Get("test_name").String(),
			Price:      row.Get("price").Float(),
			Quantity:   row.Get("quantity").Int(),
			BrandID:    row.Get("brand_id").String(),
			LocationID: row.Get("location_id").String(),
		})
	}
	return c, nil
}

func firstNumber(resp *transport.Response, paths ...string) float64 {
	for _, p := range paths {
		if v := resp.Get(p); v.Exists() {
			return v.Float()
		}
	}
	return 0
}
