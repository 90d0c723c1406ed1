package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps outbox entries in memory for tests and single-process mode.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]*Entry)}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry
	s.entries[e.ID] = &e
	return nil
}

func (s *MemoryStore) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []Entry
	for _, e := range s.entries {
		if e.PublishedAt == nil {
			pending = append(pending, *e)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		if e, ok := s.entries[id]; ok && e.PublishedAt == nil {
			e.PublishedAt = &now
		}
	}
	return nil
}

// Pending reports how many entries are still unpublished.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.PublishedAt == nil {
			n++
		}
	}
	return n
}
