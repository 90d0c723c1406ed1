package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/platform/sentinel"
	"benefid/pkg/requestcontext"
)

// Fraud check outcomes for metrics and audit properties.
const (
	fraudCheckClean   = "clean"
	fraudCheckFlagged = "flagged"
	fraudCheckSkipped = "skipped"
	fraudCheckFailed  = "failed"
)

// RunFraudCheck assesses a claim and moves it from AWAITING_FRAUD_CHECK to
// PENDING, flagged when the verdict is risky. It is the entry point for the
// at-least-once async task, so it must be idempotent: a claim in any other
// state makes it record a skip and return nil rather than re-flag or rewrite
// the risk snapshot. That covers redelivery as well as the cancellation race:
// a claim cancelled mid-check stays cancelled.
func (s *Service) RunFraudCheck(ctx context.Context, claimID id.ClaimID) error {
	ctx, span := s.tracer.Start(ctx, "claim.RunFraudCheck",
		trace.WithAttributes(attribute.String("claim.id", claimID.String())))
	defer span.End()

	if claimID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "claim id is required")
	}

	// Unlocked pre-read. Catches most redeliveries cheaply and supplies the
	// assessment inputs; the authoritative state check repeats under the row
	// lock below.
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		return translateLookup(err)
	}
	if claim.State != models.StateAwaitingFraudCheck {
		return s.skipFraudCheck(ctx, claim)
	}

	verdict, err := s.risk.Assess(ctx, claim.IdentityID, claim.Type, &claim.ID)
	if err != nil {
		s.metrics.IncFraudCheck(fraudCheckFailed)
		if auditErr := s.logAudit(ctx, s.auditEvent(ctx, audit.EventFraudCheckFailed, claim, id.ActorID{}, err.Error(), nil)); auditErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", "claim_id", claimID, "error", auditErr)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "risk assessment failed")
	}

	outcome := fraudCheckClean
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.claims.FindByIDForUpdate(ctx, claimID)
		if err != nil {
			return translateLookup(err)
		}
		if locked.State != models.StateAwaitingFraudCheck {
			outcome = fraudCheckSkipped
			return s.logAudit(ctx, s.auditEvent(ctx, audit.EventFraudCheckSkipped, locked, id.ActorID{},
				"claim no longer awaiting fraud check", map[string]string{"found_state": string(locked.State)}))
		}

		now := requestcontext.Now(ctx)
		locked.State = models.StatePending
		locked.Flagged = verdict.Risky
		locked.Risk = verdict.Snapshot()
		locked.CheckedAt = &now
		locked.UpdatedAt = now
		if err := s.claims.Update(ctx, locked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store fraud check result")
		}
		claim = locked

		if verdict.Risky {
			outcome = fraudCheckFlagged
		}
		return s.logAudit(ctx, s.auditEvent(ctx, audit.EventFraudCheckCompleted, locked, id.ActorID{}, verdict.Detail, map[string]string{
			"outcome": outcome,
			"level":   string(verdict.Level),
		}))
	})
	if err != nil {
		s.metrics.IncFraudCheck(fraudCheckFailed)
		return err
	}

	s.metrics.IncFraudCheck(outcome)
	span.SetAttributes(attribute.String("fraud_check.outcome", outcome))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "fraud check finished",
			"claim_id", claimID,
			"outcome", outcome,
			"level", verdict.Level)
	}
	return nil
}

func (s *Service) skipFraudCheck(ctx context.Context, claim *models.Claim) error {
	s.metrics.IncFraudCheck(fraudCheckSkipped)
	if s.logger != nil {
		s.logger.WarnContext(ctx, "fraud check skipped",
			"claim_id", claim.ID,
			"state", claim.State)
	}
	if err := s.logAudit(ctx, s.auditEvent(ctx, audit.EventFraudCheckSkipped, claim, id.ActorID{},
		"claim no longer awaiting fraud check", map[string]string{"found_state": string(claim.State)})); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "claim_id", claim.ID, "error", err)
	}
	return nil
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "claim lookup failed")
}
