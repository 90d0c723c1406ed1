package thresholds

import (
	"context"
	"sync"

	"benefid/pkg/platform/sentinel"
)

// MemoryStore keeps settings in memory for tests and single-process mode.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]int
}

func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]int)}
}

func (s *MemoryStore) GetInt(_ context.Context, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) SetInt(_ context.Context, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
