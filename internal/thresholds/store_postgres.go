package thresholds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"benefid/pkg/platform/sentinel"
	txcontext "benefid/pkg/platform/tx"
)

// PostgresStore persists settings in the settings table. The runtime
// configuration surface that writes these rows lives outside the core; this
// store only needs typed reads plus a setter for seeding.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetInt(ctx context.Context, key string) (int, error) {
	var value int
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT int_value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("get setting %s: %w (%v)", key, sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (s *PostgresStore) SetInt(ctx context.Context, key string, value int) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO settings (key, int_value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET int_value = EXCLUDED.int_value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
