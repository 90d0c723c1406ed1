// Package store persists verified identity pairs.
package store

import (
	"context"
	"time"

	"benefid/internal/pair/models"
	id "benefid/pkg/domain"
)

// Store is the narrow contract the pair whitelist service depends on.
// Callers pass canonically ordered identity IDs; implementations do not
// reorder.
type Store interface {
	// CreateIfNoActive inserts the pair unless an active (non-revoked) row
	// already exists for the same canonical pair, in which case it returns
	// sentinel.ErrConflict.
	CreateIfNoActive(ctx context.Context, pair *models.VerifiedPair) error

	FindByID(ctx context.Context, pairID id.PairID) (*models.VerifiedPair, error)

	// FindActive returns the active pair for the canonical (a, b) ordering,
	// or sentinel.ErrNotFound.
	FindActive(ctx context.Context, a, b id.IdentityID) (*models.VerifiedPair, error)

	// Revoke marks the pair revoked. Returns sentinel.ErrInvalidState when
	// it is already revoked; revocation is the only permitted mutation.
	Revoke(ctx context.Context, pairID id.PairID, actor id.ActorID, reason string, now time.Time) (*models.VerifiedPair, error)

	// ListActiveDistinctPartners returns the partners of identityID across
	// all active CONFIRMED_DISTINCT pairs. Feeds matcher suppression.
	ListActiveDistinctPartners(ctx context.Context, identityID id.IdentityID) ([]id.IdentityID, error)
}
