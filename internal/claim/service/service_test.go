package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"benefid/internal/claim/models"
	"benefid/internal/claim/store"
	riskmodels "benefid/internal/risk/models"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	auditmem "benefid/pkg/platform/audit/store/memory"
	"benefid/pkg/platform/outbox"
	"benefid/pkg/platform/tx"
	"benefid/pkg/requestcontext"
)

// stubAssessor returns a fixed verdict, letting lifecycle tests steer the
// fraud check outcome directly.
type stubAssessor struct {
	verdict *riskmodels.Verdict
	err     error
	calls   int
}

func (s *stubAssessor) Assess(_ context.Context, _ id.IdentityID, _ models.AssistanceType, _ *id.ClaimID) (*riskmodels.Verdict, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

func cleanVerdict() *riskmodels.Verdict {
	return &riskmodels.Verdict{Level: riskmodels.LevelLow, Detail: "no risk indicators"}
}

func riskyVerdict() *riskmodels.Verdict {
	return &riskmodels.Verdict{
		Level:    riskmodels.LevelMedium,
		Risky:    true,
		RuleHits: []riskmodels.Rule{riskmodels.RuleDoubleDipping},
		Detail:   "level MEDIUM: double_dipping",
	}
}

type fixture struct {
	svc     *Service
	claims  *store.MemoryStore
	budgets *store.MemoryBudgetStore
	outbox  *outbox.MemoryStore
	audits  *auditmem.Store
	assess  *stubAssessor
	actor   id.ActorID
	ctx     context.Context
}

func newFixture(t *testing.T, verdict *riskmodels.Verdict) *fixture {
	t.Helper()
	f := &fixture{
		claims:  store.NewMemory(),
		budgets: store.NewMemoryBudget(),
		outbox:  outbox.NewMemory(),
		audits:  auditmem.New(),
		assess:  &stubAssessor{verdict: verdict},
		actor:   id.NewActorID(),
	}
	f.svc = New(f.claims, f.budgets, f.outbox, &tx.SerialRunner{}, f.assess,
		WithAuditPublisher(audit.NewPublisher(f.audits)))
	f.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC))
	return f
}

func (f *fixture) create(t *testing.T) *models.Claim {
	t.Helper()
	claim, err := f.svc.Create(f.ctx, models.NewClaimInput{
		IdentityID:     id.NewIdentityID(),
		JurisdictionID: id.NewJurisdictionID(),
		Type:           models.TypeMedical,
		Amount:         decimal.NewFromInt(5000),
		Actor:          f.actor,
	})
	require.NoError(t, err)
	return claim
}

// pending creates a claim and runs its fraud check so it lands in PENDING.
func (f *fixture) pending(t *testing.T) *models.Claim {
	t.Helper()
	claim := f.create(t)
	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))
	checked, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)
	return checked
}

func (f *fixture) transition(claimID id.ClaimID, action models.Action, reason string) (*models.Claim, error) {
	return f.svc.Transition(f.ctx, TransitionInput{
		ClaimID: claimID,
		Action:  action,
		Actor:   f.actor,
		Reason:  reason,
	})
}

func TestCreateSchedulesFraudCheck(t *testing.T) {
	f := newFixture(t, cleanVerdict())

	claim := f.create(t)
	assert.Equal(t, models.StateAwaitingFraudCheck, claim.State)
	assert.False(t, claim.Flagged)
	assert.Nil(t, claim.Risk)

	pendingEntries, err := f.outbox.FetchUnpublished(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, pendingEntries, 1)
	assert.Equal(t, outbox.AggregateFraudCheck, pendingEntries[0].AggregateType)
	assert.Equal(t, EventFraudCheckRequested, pendingEntries[0].EventType)
	assert.Equal(t, claim.ID.String(), pendingEntries[0].AggregateID)

	assert.Len(t, f.audits.ByAction(audit.EventClaimCreated), 1)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, cleanVerdict())

	cases := map[string]models.NewClaimInput{
		"missing identity": {
			JurisdictionID: id.NewJurisdictionID(),
			Type:           models.TypeFood,
			Amount:         decimal.NewFromInt(100),
			Actor:          f.actor,
		},
		"unknown type": {
			IdentityID:     id.NewIdentityID(),
			JurisdictionID: id.NewJurisdictionID(),
			Type:           "LOTTERY",
			Amount:         decimal.NewFromInt(100),
			Actor:          f.actor,
		},
		"non-positive amount": {
			IdentityID:     id.NewIdentityID(),
			JurisdictionID: id.NewJurisdictionID(),
			Type:           models.TypeFood,
			Amount:         decimal.Zero,
			Actor:          f.actor,
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
	assert.Zero(t, f.outbox.Pending())
}

func TestRunFraudCheckClean(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.create(t)

	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))

	checked, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, checked.State)
	assert.False(t, checked.Flagged)
	require.NotNil(t, checked.Risk)
	assert.Equal(t, string(riskmodels.LevelLow), checked.Risk.Level)
	assert.NotNil(t, checked.CheckedAt)
	assert.Len(t, f.audits.ByAction(audit.EventFraudCheckCompleted), 1)
}

func TestRunFraudCheckFlagged(t *testing.T) {
	f := newFixture(t, riskyVerdict())
	claim := f.create(t)

	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))

	checked, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, checked.State)
	assert.True(t, checked.Flagged)
	require.NotNil(t, checked.Risk)
	assert.Contains(t, checked.Risk.RuleHits, string(riskmodels.RuleDoubleDipping))
}

func TestRunFraudCheckRedeliveryIsNoOp(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.create(t)
	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))

	first, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)

	// Redelivered task: must not reassess or rewrite the snapshot.
	f.assess.verdict = riskyVerdict()
	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))

	second, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, first.State, second.State)
	assert.False(t, second.Flagged)
	assert.Equal(t, first.Risk, second.Risk)
	assert.Equal(t, 1, f.assess.calls)
	assert.Len(t, f.audits.ByAction(audit.EventFraudCheckSkipped), 1)
}

func TestRunFraudCheckCancellationRace(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.create(t)

	// The claim is cancelled while its check is still queued. The late task
	// must fail closed and leave the claim cancelled.
	_, err := f.transition(claim.ID, models.ActionCancel, "applicant withdrew")
	require.NoError(t, err)

	require.NoError(t, f.svc.RunFraudCheck(f.ctx, claim.ID))

	after, err := f.svc.Get(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, after.State)
	assert.False(t, after.Flagged)
	assert.Nil(t, after.Risk)
	assert.NotEmpty(t, f.audits.ByAction(audit.EventFraudCheckSkipped))
}

func TestTransitionGuards(t *testing.T) {
	f := newFixture(t, cleanVerdict())

	t.Run("approve before fraud check", func(t *testing.T) {
		claim := f.create(t)
		_, err := f.transition(claim.ID, models.ActionApprove, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		assert.Contains(t, err.Error(), "fraud check")
	})

	t.Run("reject requires reason", func(t *testing.T) {
		claim := f.pending(t)
		_, err := f.transition(claim.ID, models.ActionReject, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("disburse requires approval", func(t *testing.T) {
		claim := f.pending(t)
		_, err := f.transition(claim.ID, models.ActionDisburse, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("disburse requires proof", func(t *testing.T) {
		claim := f.pending(t)
		_, err := f.transition(claim.ID, models.ActionApprove, "")
		require.NoError(t, err)
		_, err = f.transition(claim.ID, models.ActionDisburse, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		assert.Contains(t, err.Error(), "proof")
	})

	t.Run("rejected claim cannot be approved", func(t *testing.T) {
		claim := f.pending(t)
		_, err := f.transition(claim.ID, models.ActionReject, "ineligible")
		require.NoError(t, err)
		_, err = f.transition(claim.ID, models.ActionApprove, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("unknown action", func(t *testing.T) {
		claim := f.pending(t)
		_, err := f.transition(claim.ID, "escalate", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestTransitionReviewLoop(t *testing.T) {
	f := newFixture(t, riskyVerdict())
	claim := f.pending(t)
	require.True(t, claim.Flagged)

	reviewed, err := f.transition(claim.ID, models.ActionMarkUnderReview, "")
	require.NoError(t, err)
	assert.Equal(t, models.StateUnderReview, reviewed.State)

	// A reviewed claim may be approved directly.
	approved, err := f.transition(claim.ID, models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, approved.State)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestDisbursementChargesBudgetOnce(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.pending(t)

	_, err := f.transition(claim.ID, models.ActionApprove, "")
	require.NoError(t, err)
	_, err = f.svc.RecordProof(f.ctx, claim.ID, "proof://receipt/123", f.actor)
	require.NoError(t, err)

	disbursed, err := f.transition(claim.ID, models.ActionDisburse, "")
	require.NoError(t, err)
	assert.Equal(t, models.StateDisbursed, disbursed.State)
	assert.NotNil(t, disbursed.DisbursedAt)
	assert.Nil(t, disbursed.ApprovedAt)

	used, err := f.budgets.UsedBudget(f.ctx, claim.JurisdictionID)
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(5000)), "used budget %s", used)

	// A redelivered disbursement task is a no-op, not a second charge.
	again, err := f.transition(claim.ID, models.ActionDisburse, "")
	require.NoError(t, err)
	assert.Equal(t, models.StateDisbursed, again.State)

	used, err = f.budgets.UsedBudget(f.ctx, claim.JurisdictionID)
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(5000)), "used budget %s", used)
}

// Concurrent disbursement commands must charge the ledger exactly once. The
// runner's callback serialization stands in for the postgres row lock.
func TestConcurrentDisbursementChargesOnce(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.pending(t)

	_, err := f.transition(claim.ID, models.ActionApprove, "")
	require.NoError(t, err)
	_, err = f.svc.RecordProof(f.ctx, claim.ID, "proof://receipt/77", f.actor)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.transition(claim.ID, models.ActionDisburse, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	used, err := f.budgets.UsedBudget(f.ctx, claim.JurisdictionID)
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(5000)), "used budget %s", used)
}

func TestDisbursedClaimIsImmutable(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.pending(t)
	_, err := f.transition(claim.ID, models.ActionApprove, "")
	require.NoError(t, err)
	_, err = f.svc.RecordProof(f.ctx, claim.ID, "proof://receipt/9", f.actor)
	require.NoError(t, err)
	_, err = f.transition(claim.ID, models.ActionDisburse, "")
	require.NoError(t, err)

	for _, action := range []models.Action{
		models.ActionApprove, models.ActionReject, models.ActionCancel, models.ActionMarkUnderReview,
	} {
		t.Run(string(action), func(t *testing.T) {
			_, err := f.transition(claim.ID, action, "never")
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		})
	}
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	f := newFixture(t, cleanVerdict())

	prepare := map[string]func(t *testing.T) *models.Claim{
		"awaiting fraud check": f.create,
		"pending":              f.pending,
		"under review": func(t *testing.T) *models.Claim {
			claim := f.pending(t)
			reviewed, err := f.transition(claim.ID, models.ActionMarkUnderReview, "")
			require.NoError(t, err)
			return reviewed
		},
		"approved": func(t *testing.T) *models.Claim {
			claim := f.pending(t)
			approved, err := f.transition(claim.ID, models.ActionApprove, "")
			require.NoError(t, err)
			return approved
		},
	}
	for name, setup := range prepare {
		t.Run(name, func(t *testing.T) {
			claim := setup(t)
			cancelled, err := f.transition(claim.ID, models.ActionCancel, "duplicate filing")
			require.NoError(t, err)
			assert.Equal(t, models.StateCancelled, cancelled.State)
			assert.NotNil(t, cancelled.CancelledAt)
		})
	}
}

func TestTransitionRecordsActorAndAudit(t *testing.T) {
	f := newFixture(t, cleanVerdict())
	claim := f.pending(t)

	approved, err := f.transition(claim.ID, models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, f.actor, approved.LastActor)

	events := f.audits.ByAction(audit.EventClaimTransitioned)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "claim:"+claim.ID.String(), last.Subject)
	assert.Equal(t, f.actor.String(), last.Actor)
	assert.Equal(t, string(models.ActionApprove), last.Properties["action"])
}
