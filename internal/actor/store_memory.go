package actor

import (
	"context"
	"sync"
)

// InMemoryStore keeps one map per persona behind a single lock.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[Persona]map[Field]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[Persona]map[Field]string)}
}

func (s *InMemoryStore) Set(_ context.Context, persona Persona, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[persona]
	if !ok {
		ns = make(map[Field]string)
		s.data[persona] = ns
	}
	ns[field] = value
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, persona Persona, field Field) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[persona][field]
	if !ok {
		return "", missing(persona, field)
	}
	return v, nil
}

func (s *InMemoryStore) Clear(_ context.Context, personas ...Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(personas) == 0 {
		s.data = make(map[Persona]map[Field]string)
		return nil
	}
	for _, p := range personas {
		delete(s.data, p)
	}
	return nil
}
