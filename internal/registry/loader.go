package registry

import (
	"context"
	"log/slog"
	"net/http"

	"diagflow/internal/actor"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
)

const (
	locationsPath = "/tests/getlocations"
	brandsPath    = "/brand/getAllBrands"

	// DefaultBrand is selected automatically when the brand list carries it.
	DefaultBrand = "Diagnostics"
)

// Loader populates a Registry from the backend using a persona's session.
type Loader struct {
	doer         transport.Doer
	actors       actor.Store
	brandBaseURL string
	logger       *slog.Logger
}

type LoaderOption func(*Loader)

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithBrandBaseURL points brand fetches at the separate brand host.
func WithBrandBaseURL(u string) LoaderOption {
	return func(l *Loader) {
		l.brandBaseURL = u
	}
}

func NewLoader(doer transport.Doer, actors actor.Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		doer:   doer,
		actors: actors,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchLocations loads every location into reg.
func (l *Loader) FetchLocations(ctx context.Context, reg *Registry, persona actor.Persona) ([]Entry, error) {
	token, err := l.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}
	resp, err := l.doer.Do(ctx, transport.Request{
		Name:   "locations",
		Method: http.MethodPost,
		Path:   locationsPath,
		Auth:   transport.AuthBearer,
		Token:  token,
		Body:   map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	entries, err := decodeList(resp, "_id", "title", "")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		reg.Store(Location, e.Title, e)
	}
	l.logger.InfoContext(ctx, "locations loaded", "persona", persona, "count", len(entries))
	return entries, nil
}

// FetchBrands loads every brand into reg and selects DefaultBrand when present.
func (l *Loader) FetchBrands(ctx context.Context, reg *Registry, persona actor.Persona) ([]Entry, error) {
	token, err := l.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}
	resp, err := l.doer.Do(ctx, transport.Request{
		Name:    "brands",
		Method:  http.MethodPost,
		BaseURL: l.brandBaseURL,
		Path:    brandsPath,
		Auth:    transport.AuthRaw,
		Token:   token,
		Body:    map[string]int{"page": 1},
	})
	if err != nil {
		return nil, err
	}
	entries, err := decodeList(resp, "Guid", "title", "is_active")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		reg.Store(Brand, e.Title, e)
	}
	if err := reg.Select(Brand, DefaultBrand); err == nil {
		l.logger.InfoContext(ctx, "brand selected", "persona", persona, "brand", DefaultBrand)
	}
	l.logger.InfoContext(ctx, "brands loaded", "persona", persona, "count", len(entries))
	return entries, nil
}

func decodeList(resp *transport.Response, idKey, titleKey, activeKey string) ([]Entry, error) {
	if err := resp.Expect(http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	if err := resp.ExpectSuccess(); err != nil {
		return nil, err
	}
	rows, err := resp.Array("data")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dErrors.Newf(dErrors.CodePayloadShape, "%s %s: empty data list", resp.Method, resp.Path)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			ID:    row.Get(idKey).String(),
			Title: row.Get(titleKey).String(),
		}
		if e.ID == "" || e.Title == "" {
			return nil, dErrors.Newf(dErrors.CodePayloadShape, "%s %s: row without %s/%s", resp.Method, resp.Path, idKey, titleKey)
		}
		if activeKey != "" {
			if v := row.Get(activeKey); v.Exists() {
				active := v.Bool()
				e.Active = &active
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
