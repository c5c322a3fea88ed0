package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process backend used by tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string][]byte
	PutHook func(name string, data []byte) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if s.PutHook != nil {
		if err := s.PutHook(name, data); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
