package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values Values
}

// NewMemoryStore creates a store seeded with initial.
func NewMemoryStore(initial Values) *MemoryStore {
	s := &MemoryStore{values: make(Values)}
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, keys ...string) (Values, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.values, keys), nil
}

func (s *MemoryStore) Set(_ context.Context, values Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
