package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/requestcontext"
)

// TransitionInput carries one lifecycle operation request.
type TransitionInput struct {
	ClaimID id.ClaimID
	Action  models.Action
	Actor   id.ActorID
	Reason  string
}

// Transition applies a lifecycle action under a row lock. Violated
// preconditions surface as CodeInvalidState errors naming the broken rule,
// never as a silently coerced different transition. Disbursement increments
// the jurisdiction's used budget inside the same transaction; re-disbursing
// an already disbursed claim is a no-op so at-least-once disbursement tasks
// cannot double-count the budget.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Transition",
		trace.WithAttributes(
			attribute.String("claim.id", input.ClaimID.String()),
			attribute.String("claim.action", string(input.Action))))
	defer span.End()

	target, ok := input.Action.TargetState()
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown action %q", input.Action)
	}
	if input.ClaimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim id is required")
	}
	if input.Actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "acting identity is required")
	}
	if input.Action == models.ActionReject && input.Reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection requires a reason")
	}

	var claim *models.Claim
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.claims.FindByIDForUpdate(ctx, input.ClaimID)
		if err != nil {
			return translateLookup(err)
		}

		if input.Action == models.ActionDisburse && locked.State == models.StateDisbursed {
			// Redelivered disbursement task. The first run already moved the
			// state and charged the budget; repeating either would be worse
			// than doing nothing.
			claim = locked
			return nil
		}

		if err := checkTransition(locked, input.Action, target); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		locked.State = target
		locked.LastActor = input.Actor
		locked.UpdatedAt = now
		switch input.Action {
		case models.ActionApprove:
			locked.ApprovedAt = &now
		case models.ActionReject:
			locked.RejectedAt = &now
			locked.RejectReason = input.Reason
		case models.ActionDisburse:
			// Terminal markers stay mutually exclusive: disbursement replaces
			// the approval marker, which survives in the audit trail.
			locked.DisbursedAt = &now
			locked.ApprovedAt = nil
		case models.ActionCancel:
			locked.CancelledAt = &now
		}

		if input.Action == models.ActionDisburse {
			if err := s.budgets.IncrementUsedBudget(ctx, locked.JurisdictionID, locked.Amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to charge jurisdiction budget")
			}
		}

		if err := s.claims.Update(ctx, locked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store transition")
		}
		claim = locked

		return s.logAudit(ctx, s.auditEvent(ctx, audit.EventClaimTransitioned, locked, input.Actor, input.Reason, map[string]string{
			"action": string(input.Action),
		}))
	})
	if err != nil {
		s.metrics.IncTransition(string(input.Action), "rejected")
		return nil, err
	}

	s.metrics.IncTransition(string(input.Action), "applied")
	span.SetAttributes(attribute.String("claim.state", string(claim.State)))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "claim transitioned",
			"claim_id", claim.ID,
			"action", input.Action,
			"state", claim.State)
	}
	return claim, nil
}

// checkTransition enforces the state machine and the per-action
// preconditions, returning an error naming the violated rule.
func checkTransition(claim *models.Claim, action models.Action, target models.State) error {
	if models.CanTransition(claim.State, target) {
		if action == models.ActionDisburse && claim.ProofRef == "" {
			return dErrors.New(dErrors.CodeInvalidState,
				"disbursement requires recorded proof of disbursement")
		}
		return nil
	}

	switch {
	case action == models.ActionApprove && claim.State == models.StateAwaitingFraudCheck:
		return dErrors.New(dErrors.CodeInvalidState,
			"claim has not completed its fraud check and may not be approved")
	case action == models.ActionApprove:
		return dErrors.Newf(dErrors.CodeInvalidState,
			"only PENDING or UNDER_REVIEW claims may be approved, claim is %s", claim.State)
	case action == models.ActionDisburse:
		return dErrors.Newf(dErrors.CodeInvalidState,
			"only APPROVED claims may be disbursed, claim is %s", claim.State)
	case claim.State.Terminal():
		return dErrors.Newf(dErrors.CodeInvalidState,
			"claim is %s, a terminal state", claim.State)
	default:
		return dErrors.Newf(dErrors.CodeInvalidState,
			"transition %s to %s is not permitted", claim.State, target)
	}
}

// RecordProof attaches the external proof-of-disbursement reference to a
// claim. Disbursement is gated on this having happened; proof storage itself
// lives with the capture collaborator.
func (s *Service) RecordProof(ctx context.Context, claimID id.ClaimID, proofRef string, actor id.ActorID) (*models.Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim id is required")
	}
	if proofRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "proof reference is required")
	}
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "acting identity is required")
	}

	var claim *models.Claim
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.claims.FindByIDForUpdate(ctx, claimID)
		if err != nil {
			return translateLookup(err)
		}
		if locked.State.Terminal() {
			return dErrors.Newf(dErrors.CodeInvalidState,
				"claim is %s, proof can no longer be recorded", locked.State)
		}
		now := requestcontext.Now(ctx)
		locked.ProofRef = proofRef
		locked.LastActor = actor
		locked.UpdatedAt = now
		if err := s.claims.Update(ctx, locked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proof reference")
		}
		claim = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}
