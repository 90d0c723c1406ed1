package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefid/internal/claim/service"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/outbox"
)

type recordingChecker struct {
	claimIDs []id.ClaimID
}

func (r *recordingChecker) RunFraudCheck(_ context.Context, claimID id.ClaimID) error {
	r.claimIDs = append(r.claimIDs, claimID)
	return nil
}

func fraudCheckEntry(t *testing.T, claimID id.ClaimID) outbox.Entry {
	t.Helper()
	payload, err := json.Marshal(service.FraudCheckRequest{ClaimID: claimID})
	require.NoError(t, err)
	return outbox.NewEntry(outbox.AggregateFraudCheck, claimID.String(), service.EventFraudCheckRequested, payload)
}

func TestDispatcherDrainRunsFraudChecks(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemory()
	checker := &recordingChecker{}

	first := id.NewClaimID()
	second := id.NewClaimID()
	require.NoError(t, store.Append(ctx, fraudCheckEntry(t, first)))
	require.NoError(t, store.Append(ctx, fraudCheckEntry(t, second)))
	// Audit entries share the outbox but are not executed here.
	require.NoError(t, store.Append(ctx, outbox.NewEntry(outbox.AggregateAudit, "claim:x", "claim_created", nil)))

	d := NewDispatcher(store, checker)
	require.NoError(t, d.Drain(ctx))

	assert.Equal(t, []id.ClaimID{first, second}, checker.claimIDs)
	assert.Zero(t, store.Pending())
}

func TestDispatcherDropsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemory()
	checker := &recordingChecker{}

	require.NoError(t, store.Append(ctx, outbox.NewEntry(
		outbox.AggregateFraudCheck, "broken", service.EventFraudCheckRequested, []byte("{not json"))))

	d := NewDispatcher(store, checker)
	require.NoError(t, d.Drain(ctx))

	assert.Empty(t, checker.claimIDs)
	assert.Zero(t, store.Pending())
}
