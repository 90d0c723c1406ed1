// Package store persists beneficiary identities.
package store

import (
	"context"
	"time"

	"benefid/internal/identity/models"
	id "benefid/pkg/domain"
)

// Store is the narrow contract the resolver and matcher depend on.
// Implementations return sentinel errors for infrastructure facts; services
// translate them at the boundary.
type Store interface {
	// ResolveExact finds the identity with the exact normalized
	// (first, last, birth date) triple or creates it, serializing concurrent
	// calls for the same triple. The bool reports whether a row was created.
	// Returns sentinel.ErrLockNotAcquired when the per-triple lock could not
	// be obtained within the bounded wait.
	ResolveExact(ctx context.Context, candidate *models.Identity) (*models.Identity, bool, error)

	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)

	// ListActiveByPhoneticCode returns active identities whose stored
	// phonetic code equals code. The matcher's prefilter.
	ListActiveByPhoneticCode(ctx context.Context, code string) ([]*models.Identity, error)

	// SetActive soft-retires or reactivates a record.
	SetActive(ctx context.Context, identityID id.IdentityID, active bool, now time.Time) error
}
