package store

import (
	"context"
	"sync"
	"time"

	"benefid/internal/pair/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
)

// MemoryStore keeps verified pairs in memory for tests and single-process mode.
type MemoryStore struct {
	mu    sync.RWMutex
	pairs map[id.PairID]*models.VerifiedPair
}

func NewMemory() *MemoryStore {
	return &MemoryStore{pairs: make(map[id.PairID]*models.VerifiedPair)}
}

func (s *MemoryStore) CreateIfNoActive(_ context.Context, pair *models.VerifiedPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.pairs {
		if existing.IdentityA == pair.IdentityA && existing.IdentityB == pair.IdentityB && existing.IsActive() {
			return sentinel.ErrConflict
		}
	}
	cp := *pair
	s.pairs[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, pairID id.PairID) (*models.VerifiedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[pairID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *pair
	return &cp, nil
}

func (s *MemoryStore) FindActive(_ context.Context, a, b id.IdentityID) (*models.VerifiedPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pair := range s.pairs {
		if pair.IdentityA == a && pair.IdentityB == b && pair.IsActive() {
			cp := *pair
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Revoke(_ context.Context, pairID id.PairID, actor id.ActorID, reason string, now time.Time) (*models.VerifiedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.pairs[pairID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !pair.IsActive() {
		return nil, sentinel.ErrInvalidState
	}
	pair.Status = models.StatusRevoked
	pair.RevokedBy = actor
	pair.RevokedAt = &now
	pair.RevokeReason = reason
	cp := *pair
	return &cp, nil
}

func (s *MemoryStore) ListActiveDistinctPartners(_ context.Context, identityID id.IdentityID) ([]id.IdentityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var partners []id.IdentityID
	for _, pair := range s.pairs {
		if pair.Status == models.StatusConfirmedDistinct && pair.Involves(identityID) {
			partners = append(partners, pair.Partner(identityID))
		}
	}
	return partners, nil
}
