package service

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/platform/outbox"
	"benefid/pkg/requestcontext"
)

// EventFraudCheckRequested is the outbox event type that schedules the
// asynchronous fraud check for a freshly created claim.
const EventFraudCheckRequested = "fraud_check_requested"

// FraudCheckRequest is the payload carried by the fraud-check outbox entry.
type FraudCheckRequest struct {
	ClaimID id.ClaimID `json:"claim_id"`
}

// Create opens a claim in AWAITING_FRAUD_CHECK and schedules the fraud check
// by appending an outbox entry in the same transaction. The check is
// dispatched only after commit, so it can never observe a claim its own
// transaction has not made visible yet.
func (s *Service) Create(ctx context.Context, input models.NewClaimInput) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Create")
	defer span.End()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim := &models.Claim{
		ID:             id.NewClaimID(),
		IdentityID:     input.IdentityID,
		JurisdictionID: input.JurisdictionID,
		Type:           input.Type,
		Amount:         input.Amount,
		State:          models.StateAwaitingFraudCheck,
		LastActor:      input.Actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	payload, err := json.Marshal(FraudCheckRequest{ClaimID: claim.ID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode fraud check request")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Create(ctx, claim); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store claim")
		}
		entry := outbox.NewEntry(outbox.AggregateFraudCheck, claim.ID.String(), EventFraudCheckRequested, payload)
		if err := s.outbox.Append(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule fraud check")
		}
		return s.logAudit(ctx, s.auditEvent(ctx, audit.EventClaimCreated, claim, input.Actor, "", map[string]string{
			"assistance_type": string(claim.Type),
			"amount":          claim.Amount.String(),
		}))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated()
	span.SetAttributes(attribute.String("claim.id", claim.ID.String()))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "claim created",
			"claim_id", claim.ID,
			"identity_id", claim.IdentityID,
			"assistance_type", claim.Type)
	}
	return claim, nil
}

// Get returns a claim by ID.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim id is required")
	}
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return claim, nil
}
