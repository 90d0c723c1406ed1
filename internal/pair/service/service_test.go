package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefid/internal/pair/models"
	"benefid/internal/pair/store"
	auditmem "benefid/pkg/platform/audit/store/memory"

	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *auditmem.Store) {
	t.Helper()
	auditStore := auditmem.New()
	pub := audit.NewPublisher(auditStore)
	return New(store.NewMemory(), WithAuditPublisher(pub)), auditStore
}

func verifyInput(a, b id.IdentityID) VerifyInput {
	return VerifyInput{
		IdentityA: a,
		IdentityB: b,
		Status:    models.StatusConfirmedDistinct,
		Reason:    "field interview confirmed twins",
		Distance:  1,
		Score:     90,
		Actor:     id.NewActorID(),
	}
}

func TestVerifyOrderInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, b := id.NewIdentityID(), id.NewIdentityID()

	created, err := svc.Verify(ctx, verifyInput(a, b))
	require.NoError(t, err)

	forward, err := svc.Lookup(ctx, a, b)
	require.NoError(t, err)
	reversed, err := svc.Lookup(ctx, b, a)
	require.NoError(t, err)

	require.NotNil(t, forward)
	require.NotNil(t, reversed)
	assert.Equal(t, created.ID, forward.ID)
	assert.Equal(t, created.ID, reversed.ID)
	assert.Equal(t, forward.IdentityA, reversed.IdentityA)
	assert.Equal(t, forward.IdentityB, reversed.IdentityB)
}

func TestVerifyValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, b := id.NewIdentityID(), id.NewIdentityID()

	t.Run("same identity twice", func(t *testing.T) {
		_, err := svc.Verify(ctx, verifyInput(a, a))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("missing reason", func(t *testing.T) {
		input := verifyInput(a, b)
		input.Reason = ""
		_, err := svc.Verify(ctx, input)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("revoked is not a creatable status", func(t *testing.T) {
		input := verifyInput(a, b)
		input.Status = models.StatusRevoked
		_, err := svc.Verify(ctx, input)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestVerifySecondActivePairConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, b := id.NewIdentityID(), id.NewIdentityID()

	_, err := svc.Verify(ctx, verifyInput(a, b))
	require.NoError(t, err)

	// Same unordered pair, opposite order.
	_, err = svc.Verify(ctx, verifyInput(b, a))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRevokeThenVerifyAgain(t *testing.T) {
	svc, auditStore := newTestService(t)
	actor := id.NewActorID()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	a, b := id.NewIdentityID(), id.NewIdentityID()

	first, err := svc.Verify(ctx, verifyInput(a, b))
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, first.ID, actor, "adjudicated in error"))

	// Revocation is not deletion: the pair is simply no longer active.
	active, err := svc.Lookup(ctx, a, b)
	require.NoError(t, err)
	assert.Nil(t, active)

	// A fresh adjudication may now be recorded.
	second, err := svc.Verify(ctx, verifyInput(a, b))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Len(t, auditStore.ByAction(audit.EventPairVerified), 2)
	assert.Len(t, auditStore.ByAction(audit.EventPairRevoked), 1)
}

func TestRevokeErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := id.NewActorID()

	t.Run("unknown pair", func(t *testing.T) {
		err := svc.Revoke(ctx, id.NewPairID(), actor, "cleanup")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("double revoke", func(t *testing.T) {
		pair, err := svc.Verify(ctx, verifyInput(id.NewIdentityID(), id.NewIdentityID()))
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, pair.ID, actor, "first"))
		err = svc.Revoke(ctx, pair.ID, actor, "second")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("missing reason", func(t *testing.T) {
		err := svc.Revoke(ctx, id.NewPairID(), actor, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestConfirmedDistinctPartners(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subject := id.NewIdentityID()
	distinct := id.NewIdentityID()
	reviewed := id.NewIdentityID()

	_, err := svc.Verify(ctx, verifyInput(subject, distinct))
	require.NoError(t, err)

	// An UNDER_REVIEW pair must not suppress matching.
	input := verifyInput(subject, reviewed)
	input.Status = models.StatusUnderReview
	_, err = svc.Verify(ctx, input)
	require.NoError(t, err)

	partners, err := svc.ConfirmedDistinctPartners(ctx, subject)
	require.NoError(t, err)
	assert.Contains(t, partners, distinct)
	assert.NotContains(t, partners, reviewed)
	assert.Len(t, partners, 1)
}
