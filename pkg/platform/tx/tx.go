// Package tx carries a SQL transaction through context so stores can join
// an enclosing transaction without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "benefid/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

const defaultTimeout = 5 * time.Second

// Runner executes a function inside a database transaction. The transaction
// is injected into the callback context so any store invoked inside joins it.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRunner constructs a Runner over the given database handle.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// RunInTx begins a transaction, runs fn with the transaction in context, and
// commits on success. A timeout is applied when the caller has no deadline so
// row locks taken inside are bounded-wait, not indefinite.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Passthrough runs fn without a database transaction. Suitable only when no
// callback spans a read-check-update sequence, such as single-store tests.
type Passthrough struct{}

func (Passthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SerialRunner serializes callbacks with a process-wide mutex. Memory stores
// are atomic per call but provide no row locks, so a read-check-update
// sequence inside a callback needs the whole callback serialized to match
// what FindByIDForUpdate guarantees on postgres.
type SerialRunner struct {
	mu sync.Mutex
}

func (r *SerialRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
