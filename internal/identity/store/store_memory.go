package store

import (
	"context"
	"sync"
	"time"

	"benefid/internal/identity/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
)

// MemoryStore keeps identities in memory. A single mutex serializes
// ResolveExact, which gives the same per-triple exclusivity the postgres
// store gets from its advisory lock.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.IdentityID]*models.Identity
	byTriple   map[string]id.IdentityID
	byPhonetic map[string][]id.IdentityID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[id.IdentityID]*models.Identity),
		byTriple:   make(map[string]id.IdentityID),
		byPhonetic: make(map[string][]id.IdentityID),
	}
}

func (s *MemoryStore) ResolveExact(_ context.Context, candidate *models.Identity) (*models.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.TripleKey(candidate.FirstName, candidate.LastName, candidate.BirthDate)
	if existingID, ok := s.byTriple[key]; ok {
		return copyIdentity(s.byID[existingID]), false, nil
	}

	stored := copyIdentity(candidate)
	s.byID[stored.ID] = stored
	s.byTriple[key] = stored.ID
	s.byPhonetic[stored.PhoneticCode] = append(s.byPhonetic[stored.PhoneticCode], stored.ID)
	return copyIdentity(stored), true, nil
}

func (s *MemoryStore) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyIdentity(identity), nil
}

func (s *MemoryStore) ListActiveByPhoneticCode(_ context.Context, code string) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPhonetic[code]
	out := make([]*models.Identity, 0, len(ids))
	for _, identityID := range ids {
		if identity := s.byID[identityID]; identity != nil && identity.Active {
			out = append(out, copyIdentity(identity))
		}
	}
	return out, nil
}

func (s *MemoryStore) SetActive(_ context.Context, identityID id.IdentityID, active bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	identity.Active = active
	identity.UpdatedAt = now
	return nil
}

func copyIdentity(identity *models.Identity) *models.Identity {
	cp := *identity
	return &cp
}
