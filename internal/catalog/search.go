// Package catalog searches the test catalog and narrows the matches to the
// items a persona can book for home collection.
package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"diagflow/internal/actor"
	"diagflow/internal/registry"
	"diagflow/internal/transport"
	dErrors "diagflow/pkg/domain-errors"
	pstrings "diagflow/pkg/platform/strings"
)

const (
	searchPath  = "tests/adminTests"
	searchLimit = 50
	searchSort  = "Type"
)

// Result is the outcome of one search. Raw keeps every row the backend
// returned, matched or not.
type Result struct {
	Keyword  string
	Raw      []gjson.Result
	Items    []Item
	Eligible []Item
	Missing  []string
}

type searchRequest struct {
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
	SearchString string `json:"search_string"`
	SortBy       string `json:"sort_by"`
	Location     string `json:"location"`
}

// Searcher runs keyword searches and keeps the latest eligible set per persona.
type Searcher struct {
	doer     transport.Doer
	actors   actor.Store
	registry *registry.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	eligible map[actor.Persona][]Item
}

type Option func(*Searcher)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

func NewSearcher(doer transport.Doer, actors actor.Store, reg *registry.Registry, opts ...Option) *Searcher {
	s := &Searcher{
		doer:     doer,
		actors:   actors,
		registry: reg,
		logger:   slog.Default(),
		eligible: make(map[actor.Persona][]Item),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keyword derives the single search term the backend accepts: the lower-cased
// first word of the first requested name. Later names are not consulted, so
// the result set can both over- and under-match a multi-name request.
func Keyword(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return pstrings.FirstWordLower(names[0])
}

// Search looks up names at locationTitle for persona. A requested name
// without an exact match is logged and listed in Result.Missing.
func (s *Searcher) Search(ctx context.Context, persona actor.Persona, names []string, locationTitle string) (*Result, error) {
	locationID, err := s.registry.LookupID(registry.Location, locationTitle)
	if err != nil {
		return nil, err
	}
	keyword := Keyword(names)
	if keyword == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one non-blank test name is required")
	}
	token, err := s.actors.Get(ctx, persona, actor.Token)
	if err != nil {
		return nil, err
	}

	resp, err := s.doer.Do(ctx, transport.Request{
		Name:   "search",
		Method: http.MethodPost,
		Path:   searchPath,
		Auth:   transport.AuthBearer,
		Token:  token,
		Body: searchRequest{
			Page:         1,
			Limit:        searchLimit,
			SearchString: keyword,
			SortBy:       searchSort,
			Location:     locationID,
		},
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

	res := &Result{Keyword: keyword, Raw: rows}
	for _, name := range names {
		row, ok := findByName(rows, name)
		if !ok {
			s.logger.WarnContext(ctx, "test not found in search results",
				"persona", persona,
				"test", name,
				"keyword", keyword,
			)
			res.Missing = append(res.Missing, name)
			continue
		}
		item := itemFromJSON(row)
		res.Items = append(res.Items, item)
		if item.HomeCollectionEligible {
			res.Eligible = append(res.Eligible, item)
		} else {
			s.logger.InfoContext(ctx, "test not eligible for home collection",
				"persona", persona,
				"test", item.Name,
			)
		}
	}

	s.mu.Lock()
	s.eligible[persona] = res.Eligible
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "search complete",
		"persona", persona,
		"keyword", keyword,
		"returned", len(rows),
		"matched", len(res.Items),
		"eligible", len(res.Eligible),
	)
	return res, nil
}

// Eligible returns a copy of persona's eligible set from its latest search.
func (s *Searcher) Eligible(persona actor.Persona) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.eligible[persona]...)
}

func findByName(rows []gjson.Result, name string) (gjson.Result, bool) {
	for _, row := range rows {
		if strings.EqualFold(row.Get("test_name").String(), name) {
			return row, true
		}
	}
	return gjson.Result{}, false
}
