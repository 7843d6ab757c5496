// Package slot finds a bookable home-collection slot and the centers that
// serve an address.
package slot

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	slotCountPath = "/slot/getSlotCountByTime"

	// DefaultWindow is how many consecutive days are scanned, today included.
	DefaultWindow = 7
	dateLayout    = "2006-01-02"
	slotPageLimit = 100
	slotTypeHome  = "home"
)

// Slot is the chosen slot.
type Slot struct {
	GUID      string
	Date      string
	StartTime string
	EndTime   string
	Count     int
}

type countRequest struct {
	SlotStartTime string `json:"slot_start_time"`
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	Type          string `json:"type"`
	AddressGUID   string `json:"addressguid"`
}

// Resolver walks forward day by day until a slot with capacity turns up.
type Resolver struct {
	doer   transport.Doer
	actors actor.Store
	logger *slog.Logger
	now    func() time.Time
	window int
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClock replaces time.Now as the start of the walk.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithWindow overrides DefaultWindow.
func WithWindow(days int) Option {
	return func(r *Resolver) {
		if days > 0 {
			r.window = days
		}
	}
}

func NewResolver(doer transport.Doer, actors actor.Store, opts ...Option) *Resolver {
	r := &Resolver{
		doer:   doer,
		actors: actors,
		logger: slog.Default(),
		now:    time.Now,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches with owner's session and address and records the first
// slot with a positive count as slotGuid/slotDate for owner and every
// persona in shareWith.
func (r *Resolver) Resolve(ctx context.Context, owner actor.Persona, shareWith ...actor.Persona) (Slot, error) {
	token, err := r.actors.Get(ctx, owner, actor.Token)
	if err != nil {
		return Slot{}, err
	}
	addressID, err := r.actors.Get(ctx, owner, actor.AddressID)
	if err != nil {
		return Slot{}, err
	}

	start := r.now()
	for day := range r.window {
		date := start.AddDate(0, 0, day).Format(dateLayout)
		slots, err := r.fetchDay(ctx, token, addressID, date)
		if err != nil {
			return Slot{}, err
		}
		chosen, ok := firstAvailable(slots, date)
		if !ok {
			r.logger.DebugContext(ctx, "no free slot", "persona", owner, "date", date, "slots", len(slots))
			continue
		}

		for _, p := range append([]actor.Persona{owner}, shareWith...) {
			err := actor.SetAll(ctx, r.actors, p, map[actor.Field]string{
				actor.SlotGUID: chosen.GUID,
				actor.SlotDate: chosen.Date,
			})
			if err != nil {
				return Slot{}, err
			}
		}
		r.logger.InfoContext(ctx, "slot selected",
			"persona", owner,
			"slot_guid", chosen.GUID,
			"date", chosen.Date,
			"count", chosen.Count,
		)
		return chosen, nil
	}

	return Slot{}, dErrors.Newf(dErrors.CodeNoAvailableSlot,
		"no slot with capacity in %d days from %s", r.window, start.Format(dateLayout))
}

func (r *Resolver) fetchDay(ctx context.Context, token, addressID, date string) ([]gjson.Result, error) {
	resp, err := r.doer.Do(ctx, transport.Request{
		Name:   "slot_count",
		Method: http.MethodPost,
		Path:   slotCountPath,
		Auth:   transport.AuthRaw,
		Token:  token,
		Body: countRequest{
			SlotStartTime: date,
			Page:          1,
			Limit:         slotPageLimit,
			Type:          slotTypeHome,
			AddressGUID:   addressID,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(http.StatusOK); err != nil {
		return nil, err
	}
	if err := resp.ExpectSuccess(); err != nil {
		return nil, err
	}
	if v := resp.Get("data"); !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	return resp.Array("data")
}

func firstAvailable(slots []gjson.Result, date string) (Slot, bool) {
	for _, s := range slots {
		guid := s.Get("guid").String()
		start := s.Get("starttime").String()
		if guid == "" || start == "" {
			continue
		}
		if n := NormalizeCount(s.Get("count").Value()); n > 0 {
			return Slot{
				GUID:      guid,
				Date:      date,
				StartTime: start,
				EndTime:   s.Get("endtime").String(),
				Count:     n,
			}, true
		}
	}
	return Slot{}, false
}

// NormalizeCount reads a slot count delivered as a number or numeric string.
// Fractions are truncated; anything unparsable counts as zero.
func NormalizeCount(v any) int {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NormalizeCount(f)
		}
	}
	return 0
}
