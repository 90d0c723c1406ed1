// Package store defines persistence contracts for claims and the
// per-jurisdiction budget ledger.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
)

// Store persists claims. Implementations return sentinel.ErrNotFound for
// missing claims and honor a transaction carried in the context.
type Store interface {
	// Create inserts a new claim.
	Create(ctx context.Context, claim *models.Claim) error
	// FindByID returns a claim without locking it.
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	// FindByIDForUpdate returns a claim holding a row lock for the duration
	// of the surrounding transaction. Callers must run inside one.
	FindByIDForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	// Update rewrites a claim's mutable fields.
	Update(ctx context.Context, claim *models.Claim) error
	// ListByIdentitySince returns the identity's claims created at or after
	// since, newest first.
	ListByIdentitySince(ctx context.Context, identityID id.IdentityID, since time.Time) ([]*models.Claim, error)
	// LastClaimAt returns the creation time of the identity's most recent
	// claim, or nil when it has none.
	LastClaimAt(ctx context.Context, identityID id.IdentityID) (*time.Time, error)
}

// BudgetStore tracks each jurisdiction's running used budget.
type BudgetStore interface {
	// IncrementUsedBudget adds amount to the jurisdiction's used budget,
	// creating the ledger row on first use. Implementations lock the row so
	// concurrent disbursements serialize.
	IncrementUsedBudget(ctx context.Context, jurisdictionID id.JurisdictionID, amount decimal.Decimal) error
	// UsedBudget returns the jurisdiction's current used budget, zero when
	// the jurisdiction has no ledger row yet.
	UsedBudget(ctx context.Context, jurisdictionID id.JurisdictionID) (decimal.Decimal, error)
}
