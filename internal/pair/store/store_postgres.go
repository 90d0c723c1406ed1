package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"benefid/internal/pair/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
	txcontext "benefid/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

const pairColumns = `id, identity_a, identity_b, status, reason, distance, score,
	verified_by, verified_at, revoked_by, revoked_at, revoke_reason`

// PostgresStore persists verified pairs. A partial unique index on
// (identity_a, identity_b) WHERE status <> 'REVOKED' enforces the
// one-active-pair invariant.
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

func (s *PostgresStore) CreateIfNoActive(ctx context.Context, pair *models.VerifiedPair) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO verified_pairs (id, identity_a, identity_b, status, reason,
			distance, score, verified_by, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(pair.ID),
		uuid.UUID(pair.IdentityA),
		uuid.UUID(pair.IdentityB),
		string(pair.Status),
		pair.Reason,
		pair.Distance,
		pair.Score,
		uuid.UUID(pair.VerifiedBy),
		pair.VerifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verified pair: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, pairID id.PairID) (*models.VerifiedPair, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+pairColumns+` FROM verified_pairs WHERE id = $1
	`, uuid.UUID(pairID))
	return scanPair(row)
}

func (s *PostgresStore) FindActive(ctx context.Context, a, b id.IdentityID) (*models.VerifiedPair, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+pairColumns+`
		FROM verified_pairs
		WHERE identity_a = $1 AND identity_b = $2 AND status <> 'REVOKED'
	`, uuid.UUID(a), uuid.UUID(b))
	return scanPair(row)
}

func (s *PostgresStore) Revoke(ctx context.Context, pairID id.PairID, actor id.ActorID, reason string, now time.Time) (*models.VerifiedPair, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		UPDATE verified_pairs
		SET status = 'REVOKED', revoked_by = $2, revoked_at = $3, revoke_reason = $4
		WHERE id = $1 AND status <> 'REVOKED'
		RETURNING `+pairColumns+`
	`, uuid.UUID(pairID), uuid.UUID(actor), now, reason)

	pair, err := scanPair(row)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Distinguish missing from already-revoked for the caller.
			if _, findErr := s.FindByID(ctx, pairID); findErr == nil {
				return nil, sentinel.ErrInvalidState
			}
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return pair, nil
}

func (s *PostgresStore) ListActiveDistinctPartners(ctx context.Context, identityID id.IdentityID) ([]id.IdentityID, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT identity_a, identity_b
		FROM verified_pairs
		WHERE status = 'CONFIRMED_DISTINCT' AND (identity_a = $1 OR identity_b = $1)
	`, uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list distinct partners: %w", err)
	}
	defer rows.Close()

	var partners []id.IdentityID
	for rows.Next() {
		var a, b uuid.UUID
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scan distinct partner: %w", err)
		}
		if id.IdentityID(a) == identityID {
			partners = append(partners, id.IdentityID(b))
		} else {
			partners = append(partners, id.IdentityID(a))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct partners: %w", err)
	}
	return partners, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPair(row rowScanner) (*models.VerifiedPair, error) {
	var (
		pair              models.VerifiedPair
		rawID, rawA, rawB uuid.UUID
		rawVerifier       uuid.UUID
		rawRevoker        sql.Null[uuid.UUID]
		revokedAt         sql.NullTime
		status            string
		revokeReason      sql.NullString
	)
	err := row.Scan(
		&rawID, &rawA, &rawB, &status, &pair.Reason, &pair.Distance, &pair.Score,
		&rawVerifier, &pair.VerifiedAt, &rawRevoker, &revokedAt, &revokeReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan verified pair: %w", err)
	}

	pair.ID = id.PairID(rawID)
	pair.IdentityA = id.IdentityID(rawA)
	pair.IdentityB = id.IdentityID(rawB)
	pair.Status = models.Status(status)
	pair.VerifiedBy = id.ActorID(rawVerifier)
	if rawRevoker.Valid {
		pair.RevokedBy = id.ActorID(rawRevoker.V)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		pair.RevokedAt = &t
	}
	if revokeReason.Valid {
		pair.RevokeReason = revokeReason.String
	}
	return &pair, nil
}
