package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.ClaimID]*models.Claim
	byIdentity map[id.IdentityID][]id.ClaimID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[id.ClaimID]*models.Claim),
		byIdentity: make(map[id.IdentityID][]id.ClaimID),
	}
}

func (s *MemoryStore) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[claim.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *claim
	s.byID[claim.ID] = &cp
	s.byIdentity[claim.IdentityID] = append(s.byIdentity[claim.IdentityID], claim.ID)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.byID[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *claim
	return &cp, nil
}

// FindByIDForUpdate behaves as FindByID. The store has no row locks; callers
// that read-check-update across calls must run under a tx.SerialRunner, which
// serializes the whole callback the way FOR UPDATE does on postgres.
func (s *MemoryStore) FindByIDForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.FindByID(ctx, claimID)
}

func (s *MemoryStore) Update(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[claim.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *claim
	s.byID[claim.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByIdentitySince(_ context.Context, identityID id.IdentityID, since time.Time) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, claimID := range s.byIdentity[identityID] {
		claim := s.byID[claimID]
		if claim.CreatedAt.Before(since) {
			continue
		}
		cp := *claim
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) LastClaimAt(_ context.Context, identityID id.IdentityID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, claimID := range s.byIdentity[identityID] {
		created := s.byID[claimID].CreatedAt
		if latest == nil || created.After(*latest) {
			t := created
			latest = &t
		}
	}
	return latest, nil
}

// MemoryBudgetStore is an in-memory BudgetStore.
type MemoryBudgetStore struct {
	mu   sync.Mutex
	used map[id.JurisdictionID]decimal.Decimal
}

func NewMemoryBudget() *MemoryBudgetStore {
	return &MemoryBudgetStore{used: make(map[id.JurisdictionID]decimal.Decimal)}
}

func (s *MemoryBudgetStore) IncrementUsedBudget(_ context.Context, jurisdictionID id.JurisdictionID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[jurisdictionID] = s.used[jurisdictionID].Add(amount)
	return nil
}

func (s *MemoryBudgetStore) UsedBudget(_ context.Context, jurisdictionID id.JurisdictionID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[jurisdictionID], nil
}
