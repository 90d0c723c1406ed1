// Package models defines assistance claims and their lifecycle state machine.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
)

// AssistanceType is the closed set of benefit categories a claim may request.
type AssistanceType string

const (
	TypeMedical   AssistanceType = "MEDICAL"
	TypeHousing   AssistanceType = "HOUSING"
	TypeFood      AssistanceType = "FOOD"
	TypeUtility   AssistanceType = "UTILITY"
	TypeEducation AssistanceType = "EDUCATION"
	TypeCash      AssistanceType = "CASH"
)

// Valid reports whether t is a known assistance type.
func (t AssistanceType) Valid() bool {
	switch t {
	case TypeMedical, TypeHousing, TypeFood, TypeUtility, TypeEducation, TypeCash:
		return true
	}
	return false
}

// State is a claim lifecycle state.
type State string

const (
	StateAwaitingFraudCheck State = "AWAITING_FRAUD_CHECK"
	StatePending            State = "PENDING"
	StateUnderReview        State = "UNDER_REVIEW"
	StateApproved           State = "APPROVED"
	StateDisbursed          State = "DISBURSED"
	StateRejected           State = "REJECTED"
	StateCancelled          State = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s State) Terminal() bool {
	switch s {
	case StateDisbursed, StateRejected, StateCancelled:
		return true
	}
	return false
}

// transitions is the full state machine. Cancellation from any non-terminal
// state is handled here explicitly rather than special-cased.
var transitions = map[State][]State{
	StateAwaitingFraudCheck: {StatePending, StateCancelled},
	StatePending:            {StateUnderReview, StateApproved, StateRejected, StateCancelled},
	StateUnderReview:        {StatePending, StateApproved, StateRejected, StateCancelled},
	StateApproved:           {StateDisbursed, StateCancelled},
	StateDisbursed:          {},
	StateRejected:           {},
	StateCancelled:          {},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Action is a caller-requested lifecycle operation.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionDisburse        Action = "disburse"
	ActionCancel          Action = "cancel"
	ActionMarkUnderReview Action = "markUnderReview"
)

// TargetState maps an action to the state it drives the claim into.
func (a Action) TargetState() (State, bool) {
	switch a {
	case ActionApprove:
		return StateApproved, true
	case ActionReject:
		return StateRejected, true
	case ActionDisburse:
		return StateDisbursed, true
	case ActionCancel:
		return StateCancelled, true
	case ActionMarkUnderReview:
		return StateUnderReview, true
	}
	return "", false
}

// RiskAssessment is the verdict snapshot embedded in a claim when the fraud
// check completes. Written once, never recomputed: thresholds may have
// changed since, so the snapshot is the audit record of what was decided.
type RiskAssessment struct {
	Level            string    `json:"level"`
	Risky            bool      `json:"risky"`
	Detail           string    `json:"detail"`
	RuleHits         []string  `json:"rule_hits,omitempty"`
	BestScore        int       `json:"best_score"`
	CandidateCount   int       `json:"candidate_count"`
	RecentClaimCount int       `json:"recent_claim_count"`
	AssessedAt       time.Time `json:"assessed_at"`
}

// Claim is one request for assistance by a resolved identity.
//
// Invariant: at most one of ApprovedAt / RejectedAt / DisbursedAt is set.
// Disbursement replaces the approval marker; the approval itself is retained
// in the audit trail.
type Claim struct {
	ID             id.ClaimID        `json:"id"`
	IdentityID     id.IdentityID     `json:"identity_id"`
	JurisdictionID id.JurisdictionID `json:"jurisdiction_id"`
	Type           AssistanceType    `json:"assistance_type"`
	Amount         decimal.Decimal   `json:"amount"`

	State   State           `json:"state"`
	Flagged bool            `json:"flagged"`
	Risk    *RiskAssessment `json:"risk,omitempty"`

	// ProofRef points at the externally captured proof of disbursement.
	ProofRef string `json:"proof_ref,omitempty"`

	RejectReason string     `json:"reject_reason,omitempty"`
	LastActor    id.ActorID `json:"last_actor"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CheckedAt   *time.Time `json:"checked_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	DisbursedAt *time.Time `json:"disbursed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// NewClaimInput carries the fields needed to open a claim.
type NewClaimInput struct {
	IdentityID     id.IdentityID
	JurisdictionID id.JurisdictionID
	Type           AssistanceType
	Amount         decimal.Decimal
	Actor          id.ActorID
}

// Validate checks input before any state change.
func (in NewClaimInput) Validate() error {
	if in.IdentityID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "identity id is required")
	}
	if in.JurisdictionID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction id is required")
	}
	if !in.Type.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown assistance type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "claim amount must be positive")
	}
	if in.Actor.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "creating actor is required")
	}
	return nil
}
