package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	Action     string
	Subject    string
	Actor      string
	Reason     string
	RequestID  string
	Properties map[string]string
}

// Actions recorded by the core. Every claim transition and every pair
// verification or revocation emits exactly one of these.
const (
	EventIdentityCreated     = "identity_created"
	EventIdentityResolved    = "identity_resolved"
	EventIdentityDeactivated = "identity_deactivated"
	EventClaimCreated        = "claim_created"
	EventClaimTransitioned   = "claim_transitioned"
	EventFraudCheckCompleted = "fraud_check_completed"
	EventFraudCheckSkipped   = "fraud_check_skipped"
	EventFraudCheckFailed    = "fraud_check_failed"
	EventPairVerified        = "pair_verified"
	EventPairRevoked         = "pair_revoked"
)
