// Package domain holds typed identifiers shared across features.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment (an IdentityID can never be passed where a
// ClaimID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "benefid/pkg/domain-errors"
)

type (
	// IdentityID identifies a beneficiary golden record.
	IdentityID uuid.UUID
	// ClaimID identifies an assistance claim.
	ClaimID uuid.UUID
	// PairID identifies a verified identity pair.
	PairID uuid.UUID
	// JurisdictionID identifies an intake/disbursing jurisdiction.
	JurisdictionID uuid.UUID
	// ActorID identifies the already-authorized person performing an
	// operation. Authorization itself happens outside this core.
	ActorID uuid.UUID
)

func (id IdentityID) String() string     { return uuid.UUID(id).String() }
func (id ClaimID) String() string        { return uuid.UUID(id).String() }
func (id PairID) String() string         { return uuid.UUID(id).String() }
func (id JurisdictionID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string        { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PairID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id JurisdictionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps IDs as canonical UUID strings in JSON payloads.

func (id IdentityID) MarshalText() ([]byte, error)     { return marshalID(uuid.UUID(id)) }
func (id ClaimID) MarshalText() ([]byte, error)        { return marshalID(uuid.UUID(id)) }
func (id PairID) MarshalText() ([]byte, error)         { return marshalID(uuid.UUID(id)) }
func (id JurisdictionID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id ActorID) MarshalText() ([]byte, error)        { return marshalID(uuid.UUID(id)) }

func (id *IdentityID) UnmarshalText(text []byte) error {
	return unmarshalID((*uuid.UUID)(id), text)
}

func (id *ClaimID) UnmarshalText(text []byte) error {
	return unmarshalID((*uuid.UUID)(id), text)
}

func (id *PairID) UnmarshalText(text []byte) error {
	return unmarshalID((*uuid.UUID)(id), text)
}

func (id *JurisdictionID) UnmarshalText(text []byte) error {
	return unmarshalID((*uuid.UUID)(id), text)
}

func (id *ActorID) UnmarshalText(text []byte) error {
	return unmarshalID((*uuid.UUID)(id), text)
}

func marshalID(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalID(dst *uuid.UUID, text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	*dst = u
	return nil
}

// NewIdentityID returns a fresh random identity ID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewClaimID returns a fresh random claim ID.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewPairID returns a fresh random pair ID.
func NewPairID() PairID { return PairID(uuid.New()) }

// NewJurisdictionID returns a fresh random jurisdiction ID.
func NewJurisdictionID() JurisdictionID { return JurisdictionID(uuid.New()) }

// NewActorID returns a fresh random actor ID.
func NewActorID() ActorID { return ActorID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseIdentityID validates and converts a string into an IdentityID.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(u), nil
}

// ParseClaimID validates and converts a string into a ClaimID.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ClaimID{}, err
	}
	return ClaimID(u), nil
}

// ParsePairID validates and converts a string into a PairID.
func ParsePairID(s string) (PairID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PairID{}, err
	}
	return PairID(u), nil
}

// ParseJurisdictionID validates and converts a string into a JurisdictionID.
func ParseJurisdictionID(s string) (JurisdictionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return JurisdictionID{}, err
	}
	return JurisdictionID(u), nil
}

// ParseActorID validates and converts a string into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}
