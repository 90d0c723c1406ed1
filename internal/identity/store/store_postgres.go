package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"benefid/internal/identity/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
	txcontext "benefid/pkg/platform/tx"
)

// Postgres error codes checked below.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

const identityColumns = `id, first_name, last_name, middle_name, suffix, birth_date,
	gender, phonetic_code, jurisdiction_id, active, created_at, updated_at`

// PostgresStore persists identities in PostgreSQL. A partial unique index on
// the lowercased (first_name, last_name, birth_date) triple backs the
// resolver's no-duplicate invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// ResolveExact serializes concurrent resolution for the same identifying
// triple with a transaction-scoped advisory lock, then re-checks for an
// exact match under the lock and inserts only if none exists. The lock wait
// is bounded by lock_timeout; exceeding it surfaces ErrLockNotAcquired
// rather than queueing indefinitely.
func (s *PostgresStore) ResolveExact(ctx context.Context, candidate *models.Identity) (*models.Identity, bool, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.resolveExactIn(ctx, tx, candidate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	identity, created, err := s.resolveExactIn(ctx, tx, candidate)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit resolve tx: %w", err)
	}
	return identity, created, nil
}

func (s *PostgresStore) resolveExactIn(ctx context.Context, tx *sql.Tx, candidate *models.Identity) (*models.Identity, bool, error) {
	tripleKey := models.TripleKey(candidate.FirstName, candidate.LastName, candidate.BirthDate)

	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '2s'`); err != nil {
		return nil, false, fmt.Errorf("set lock timeout: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tripleKey); err != nil {
		if isPgCode(err, pgLockNotAvailable) {
			return nil, false, sentinel.ErrLockNotAcquired
		}
		return nil, false, fmt.Errorf("acquire resolve lock: %w", err)
	}

	existing, err := s.findExact(ctx, tx, candidate)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := s.insert(ctx, tx, candidate); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			// The advisory lock should make this unreachable; a writer that
			// bypassed the resolver hit the unique index backstop.
			return nil, false, sentinel.ErrConflict
		}
		return nil, false, err
	}
	return candidate, true, nil
}

func (s *PostgresStore) findExact(ctx context.Context, q dbQuerier, candidate *models.Identity) (*models.Identity, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE lower(first_name) = lower($1)
		  AND lower(last_name) = lower($2)
		  AND birth_date = $3
	`, candidate.FirstName, candidate.LastName, candidate.BirthDate)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find exact identity: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) insert(ctx context.Context, q dbQuerier, identity *models.Identity) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO identities (id, first_name, last_name, middle_name, suffix, birth_date,
			gender, phonetic_code, jurisdiction_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(identity.ID),
		identity.FirstName,
		identity.LastName,
		identity.MiddleName,
		identity.Suffix,
		identity.BirthDate,
		identity.Gender,
		identity.PhoneticCode,
		uuid.UUID(identity.JurisdictionID),
		identity.Active,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = $1
	`, uuid.UUID(identityID))

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) ListActiveByPhoneticCode(ctx context.Context, code string) ([]*models.Identity, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE phonetic_code = $1 AND active
	`, code)
	if err != nil {
		return nil, fmt.Errorf("list identities by phonetic code: %w", err)
	}
	defer rows.Close()

	var out []*models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, identityID id.IdentityID, active bool, now time.Time) error {
	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE identities SET active = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(identityID), active, now)
	if err != nil {
		return fmt.Errorf("update identity active flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity active flag: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		identity       models.Identity
		rawID, rawJuri uuid.UUID
	)
	err := row.Scan(
		&rawID,
		&identity.FirstName,
		&identity.LastName,
		&identity.MiddleName,
		&identity.Suffix,
		&identity.BirthDate,
		&identity.Gender,
		&identity.PhoneticCode,
		&rawJuri,
		&identity.Active,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	identity.ID = id.IdentityID(rawID)
	identity.JurisdictionID = id.JurisdictionID(rawJuri)
	return &identity, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
