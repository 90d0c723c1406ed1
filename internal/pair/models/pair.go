package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
)

// Status of a verified pair. Pairs are created in one of the first three
// states and only ever transition to Revoked; nothing is hard-deleted so
// the audit trail of past false-positive handling survives.
type Status string

const (
	StatusConfirmedDistinct  Status = "CONFIRMED_DISTINCT"
	StatusConfirmedDuplicate Status = "CONFIRMED_DUPLICATE"
	StatusUnderReview        Status = "UNDER_REVIEW"
	StatusRevoked            Status = "REVOKED"
)

// Valid reports whether s is a creatable status. Revoked is reached only
// through revocation, never at creation.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmedDistinct, StatusConfirmedDuplicate, StatusUnderReview:
		return true
	}
	return false
}

// VerifiedPair records a manual adjudication that two identities are the
// same person or different people, overriding automated matching.
//
// Invariants:
//   - IdentityA < IdentityB (canonical order, applied before persistence)
//   - At most one active (non-revoked) pair per unordered identity pair
//   - Status is immutable after creation except through Revoke
type VerifiedPair struct {
	ID        id.PairID     `json:"id"`
	IdentityA id.IdentityID `json:"identity_a"`
	IdentityB id.IdentityID `json:"identity_b"`
	Status    Status        `json:"status"`
	Reason    string        `json:"reason"`

	// Similarity metrics captured at verification time for audit.
	Distance int `json:"distance"`
	Score    int `json:"score"`

	VerifiedBy id.ActorID `json:"verified_by"`
	VerifiedAt time.Time  `json:"verified_at"`

	RevokedBy    id.ActorID `json:"revoked_by,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
}

// IsActive reports whether the pair still influences matching.
func (p *VerifiedPair) IsActive() bool {
	return p.Status != StatusRevoked
}

// Involves reports whether the pair references the given identity.
func (p *VerifiedPair) Involves(identityID id.IdentityID) bool {
	return p.IdentityA == identityID || p.IdentityB == identityID
}

// Partner returns the other identity of the pair.
func (p *VerifiedPair) Partner(identityID id.IdentityID) id.IdentityID {
	if p.IdentityA == identityID {
		return p.IdentityB
	}
	return p.IdentityA
}

// Canonicalize orders two identity IDs so verify(A,B) and lookup(B,A) hit
// the same row. Pure function, applied before any persistence call.
func Canonicalize(a, b id.IdentityID) (id.IdentityID, id.IdentityID, error) {
	if a.IsNil() || b.IsNil() {
		return id.IdentityID{}, id.IdentityID{}, dErrors.New(dErrors.CodeValidation, "both identities are required")
	}
	if a == b {
		return id.IdentityID{}, id.IdentityID{}, dErrors.New(dErrors.CodeValidation, "a pair requires two distinct identities")
	}
	ua, ub := uuid.UUID(a), uuid.UUID(b)
	if bytes.Compare(ua[:], ub[:]) > 0 {
		return b, a, nil
	}
	return a, b, nil
}
