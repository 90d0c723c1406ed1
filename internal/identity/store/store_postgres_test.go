package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefid/internal/identity/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func mockIdentity() *models.Identity {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &models.Identity{
		ID:             id.NewIdentityID(),
		FirstName:      "Maria",
		LastName:       "Silva",
		BirthDate:      time.Date(1984, 3, 9, 0, 0, 0, 0, time.UTC),
		PhoneticCode:   "S410",
		JurisdictionID: id.NewJurisdictionID(),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ResolveExact must take the advisory lock before reading, and read before
// inserting. Ordered expectations pin the sequence.
func TestResolveExactInsertSequence(t *testing.T) {
	store, mock := newMockStore(t)
	candidate := mockIdentity()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(models.TripleKey(candidate.FirstName, candidate.LastName, candidate.BirthDate)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)SELECT .+ FROM identities`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO identities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, created, err := store.ResolveExact(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, candidate.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveExactReturnsExistingWithoutInsert(t *testing.T) {
	store, mock := newMockStore(t)
	candidate := mockIdentity()
	existing := mockIdentity()

	rows := sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "middle_name", "suffix", "birth_date",
		"gender", "phonetic_code", "jurisdiction_id", "active", "created_at", "updated_at",
	}).AddRow(
		existing.ID.String(), existing.FirstName, existing.LastName, "", "",
		existing.BirthDate, "", existing.PhoneticCode, existing.JurisdictionID.String(),
		true, existing.CreatedAt, existing.UpdatedAt,
	)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)SELECT .+ FROM identities`).
		WillReturnRows(rows)
	mock.ExpectCommit()

	got, created, err := store.ResolveExact(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveExactLockTimeout(t *testing.T) {
	store, mock := newMockStore(t)
	candidate := mockIdentity()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnError(&pgconn.PgError{Code: pgLockNotAvailable})
	mock.ExpectRollback()

	_, _, err := store.ResolveExact(context.Background(), candidate)
	require.ErrorIs(t, err, sentinel.ErrLockNotAcquired)
	require.NoError(t, mock.ExpectationsWereMet())
}
