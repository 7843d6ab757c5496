// Package registry holds the title-keyed location and brand catalogs that
// flow steps resolve ids from.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

// Kind partitions the registry.
type Kind string

const (
	Location Kind = "location"
	Brand    Kind = "brand"
)

// Entry is one catalog row. Active is nil when the backend does not report it.
type Entry struct {
	Title  string `json:"title"`
	ID     string `json:"id"`
	Active *bool  `json:"active,omitempty"`
}

// Registry is shared by every persona in sequential runs. Writes for an
// existing title replace the previous entry.
type Registry struct {
	mu       sync.RWMutex
	entries  map[Kind]map[string]Entry
	selected map[Kind]string
}

func New() *Registry {
	return &Registry{
		entries:  make(map[Kind]map[string]Entry),
		selected: make(map[Kind]string),
	}
}

// Store records entry under title.
func (r *Registry) Store(kind Kind, title string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.entries[kind]
	if !ok {
		m = make(map[string]Entry)
		r.entries[kind] = m
	}
	if entry.Title == "" {
		entry.Title = title
	}
	m[title] = entry
}

// Lookup returns the entry for title or a missing-context error.
func (r *Registry) Lookup(kind Kind, title string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[kind][title]
	if !ok {
		return Entry{}, notFound(kind, title)
	}
	return e, nil
}

// LookupID resolves title to its id. Unknown titles never yield a default.
func (r *Registry) LookupID(kind Kind, title string) (string, error) {
	e, err := r.Lookup(kind, title)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// Select marks title as the current entry of kind.
func (r *Registry) Select(kind Kind, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[kind][title]; !ok {
		return notFound(kind, title)
	}
	r.selected[kind] = title
	return nil
}

// SelectedID returns the id of the selected entry of kind.
func (r *Registry) SelectedID(kind Kind) (string, error) {
	e, err := r.Selected(kind)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// Selected returns the selected entry of kind.
func (r *Registry) Selected(kind Kind) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	title, ok := r.selected[kind]
	if !ok {
		return Entry{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeContextMissing,
			fmt.Sprintf("no %s selected", kind))
	}
	return r.entries[kind][title], nil
}

// Titles lists the known titles of kind in sorted order.
func (r *Registry) Titles(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries[kind]))
}

// Snapshot returns an independent copy for a persona running in parallel.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := New()
	for k, m := range r.entries {
		cp.entries[k] = maps.Clone(m)
	}
	maps.Copy(cp.selected, r.selected)
	return cp
}

func notFound(kind Kind, title string) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeContextMissing,
		fmt.Sprintf("%s %q is not registered", kind, title))
}
