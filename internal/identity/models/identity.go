package models

import (
	"strings"
	"time"

	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
)

// Identity is the golden record for a beneficiary: the single authoritative
// row a jurisdiction's intake office finds and reuses rather than duplicates.
//
// Invariants:
//   - FirstName, LastName and BirthDate are set and normalized
//   - No two rows share the same (first name, last name, birth date) triple;
//     the resolver serializes concurrent creation, the store's uniqueness
//     constraint is the backstop
//   - PhoneticCode is derived from LastName at creation and never edited
//     independently of it
//   - Rows are never deleted; Active=false soft-retires a record
type Identity struct {
	ID             id.IdentityID     `json:"id"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	MiddleName     string            `json:"middle_name,omitempty"`
	Suffix         string            `json:"suffix,omitempty"`
	BirthDate      time.Time         `json:"birth_date"`
	Gender         string            `json:"gender,omitempty"`
	PhoneticCode   string            `json:"phonetic_code"`
	JurisdictionID id.JurisdictionID `json:"jurisdiction_id"`
	Active         bool              `json:"active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewIdentityInput carries the identifying fields an intake office submits.
// Jurisdiction is the applicant's home jurisdiction (residency, not ownership).
type NewIdentityInput struct {
	FirstName      string
	LastName       string
	MiddleName     string
	Suffix         string
	BirthDate      time.Time
	Gender         string
	JurisdictionID id.JurisdictionID
}

// Normalize trims and collapses whitespace in all name fields and truncates
// the birth date to a UTC calendar date. Applied before validation so two
// submissions differing only in spacing resolve to the same triple.
func (in *NewIdentityInput) Normalize() {
	in.FirstName = NormalizeName(in.FirstName)
	in.LastName = NormalizeName(in.LastName)
	in.MiddleName = NormalizeName(in.MiddleName)
	in.Suffix = NormalizeName(in.Suffix)
	in.Gender = strings.TrimSpace(in.Gender)
	if !in.BirthDate.IsZero() {
		in.BirthDate = TruncateToDate(in.BirthDate)
	}
}

// Validate checks the fields the resolver requires.
func (in *NewIdentityInput) Validate() error {
	if in.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	if in.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "last name is required")
	}
	if in.BirthDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "birth date is required")
	}
	if in.JurisdictionID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction is required")
	}
	return nil
}

// NormalizeName trims and collapses interior whitespace. Case is preserved
// for display; matching is case-insensitive via MatchKey.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// TruncateToDate drops the time-of-day component, keeping a UTC date.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MatchKey is the case-folded first+last concatenation the matcher compares
// by edit distance.
func MatchKey(firstName, lastName string) string {
	return strings.ToLower(NormalizeName(firstName)) + " " + strings.ToLower(NormalizeName(lastName))
}

// TripleKey canonicalizes the exact-match identifying triple. Used for the
// resolver's per-triple lock scope and for log/audit correlation.
func TripleKey(firstName, lastName string, birthDate time.Time) string {
	return strings.ToLower(NormalizeName(firstName)) + "|" +
		strings.ToLower(NormalizeName(lastName)) + "|" +
		TruncateToDate(birthDate).Format("2006-01-02")
}

// FullName returns the first+last display form used in audit detail strings.
func (i *Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}
