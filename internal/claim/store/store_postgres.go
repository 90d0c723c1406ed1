package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"benefid/internal/claim/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/sentinel"
	txcontext "benefid/pkg/platform/tx"
)

const claimColumns = `id, identity_id, jurisdiction_id, assistance_type, amount, state,
	flagged, risk, proof_ref, reject_reason, last_actor,
	created_at, updated_at, checked_at, approved_at, rejected_at, disbursed_at, cancelled_at`

// PostgresStore persists claims in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, claim *models.Claim) error {
	riskJSON, err := marshalRisk(claim.Risk)
	if err != nil {
		return err
	}
	_, err = s.querier(ctx).ExecContext(ctx, `
		INSERT INTO claims (id, identity_id, jurisdiction_id, assistance_type, amount, state,
			flagged, risk, proof_ref, reject_reason, last_actor,
			created_at, updated_at, checked_at, approved_at, rejected_at, disbursed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		uuid.UUID(claim.ID),
		uuid.UUID(claim.IdentityID),
		uuid.UUID(claim.JurisdictionID),
		string(claim.Type),
		claim.Amount,
		string(claim.State),
		claim.Flagged,
		riskJSON,
		claim.ProofRef,
		claim.RejectReason,
		nullActor(claim.LastActor),
		claim.CreatedAt,
		claim.UpdatedAt,
		nullTime(claim.CheckedAt),
		nullTime(claim.ApprovedAt),
		nullTime(claim.RejectedAt),
		nullTime(claim.DisbursedAt),
		nullTime(claim.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE id = $1
	`, uuid.UUID(claimID))
	return scanClaimRow(row, "find claim")
}

// FindByIDForUpdate takes a row lock that lasts until the surrounding
// transaction ends, serializing transitions on the same claim.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE
	`, uuid.UUID(claimID))
	return scanClaimRow(row, "lock claim")
}

func (s *PostgresStore) Update(ctx context.Context, claim *models.Claim) error {
	riskJSON, err := marshalRisk(claim.Risk)
	if err != nil {
		return err
	}
	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE claims SET
			state = $2, flagged = $3, risk = $4, proof_ref = $5, reject_reason = $6,
			last_actor = $7, updated_at = $8, checked_at = $9, approved_at = $10,
			rejected_at = $11, disbursed_at = $12, cancelled_at = $13
		WHERE id = $1
	`,
		uuid.UUID(claim.ID),
		string(claim.State),
		claim.Flagged,
		riskJSON,
		claim.ProofRef,
		claim.RejectReason,
		nullActor(claim.LastActor),
		claim.UpdatedAt,
		nullTime(claim.CheckedAt),
		nullTime(claim.ApprovedAt),
		nullTime(claim.RejectedAt),
		nullTime(claim.DisbursedAt),
		nullTime(claim.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByIdentitySince(ctx context.Context, identityID id.IdentityID, since time.Time) ([]*models.Claim, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE identity_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, uuid.UUID(identityID), since)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) LastClaimAt(ctx context.Context, identityID id.IdentityID) (*time.Time, error) {
	var last sql.NullTime
	err := s.querier(ctx).QueryRowContext(ctx, `
		SELECT max(created_at) FROM claims WHERE identity_id = $1
	`, uuid.UUID(identityID)).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last claim time: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// PostgresBudgetStore keeps the per-jurisdiction used-budget ledger.
type PostgresBudgetStore struct {
	db *sql.DB
}

func NewPostgresBudget(db *sql.DB) *PostgresBudgetStore {
	return &PostgresBudgetStore{db: db}
}

func (s *PostgresBudgetStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// IncrementUsedBudget upserts the ledger row. The ON CONFLICT update takes
// the row lock, so concurrent disbursements for one jurisdiction serialize
// for the rest of the transaction.
func (s *PostgresBudgetStore) IncrementUsedBudget(ctx context.Context, jurisdictionID id.JurisdictionID, amount decimal.Decimal) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO jurisdiction_budgets (jurisdiction_id, used_budget, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (jurisdiction_id)
		DO UPDATE SET used_budget = jurisdiction_budgets.used_budget + EXCLUDED.used_budget,
			updated_at = now()
	`, uuid.UUID(jurisdictionID), amount)
	if err != nil {
		return fmt.Errorf("increment used budget: %w", err)
	}
	return nil
}

func (s *PostgresBudgetStore) UsedBudget(ctx context.Context, jurisdictionID id.JurisdictionID) (decimal.Decimal, error) {
	var used decimal.Decimal
	err := s.querier(ctx).QueryRowContext(ctx, `
		SELECT used_budget FROM jurisdiction_budgets WHERE jurisdiction_id = $1
	`, uuid.UUID(jurisdictionID)).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read used budget: %w", err)
	}
	return used, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaimRow(row *sql.Row, op string) (*models.Claim, error) {
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claim, nil
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		claim                                             models.Claim
		rawID, rawIdentity, rawJurisdiction               uuid.UUID
		rawActor                                          sql.Null[uuid.UUID]
		riskJSON                                          []byte
		checked, approved, rejected, disbursed, cancelled sql.NullTime
	)
	err := row.Scan(
		&rawID,
		&rawIdentity,
		&rawJurisdiction,
		&claim.Type,
		&claim.Amount,
		&claim.State,
		&claim.Flagged,
		&riskJSON,
		&claim.ProofRef,
		&claim.RejectReason,
		&rawActor,
		&claim.CreatedAt,
		&claim.UpdatedAt,
		&checked,
		&approved,
		&rejected,
		&disbursed,
		&cancelled,
	)
	if err != nil {
		return nil, err
	}
	claim.ID = id.ClaimID(rawID)
	claim.IdentityID = id.IdentityID(rawIdentity)
	claim.JurisdictionID = id.JurisdictionID(rawJurisdiction)
	if rawActor.Valid {
		claim.LastActor = id.ActorID(rawActor.V)
	}
	if len(riskJSON) > 0 {
		var risk models.RiskAssessment
		if err := json.Unmarshal(riskJSON, &risk); err != nil {
			return nil, fmt.Errorf("decode risk snapshot: %w", err)
		}
		claim.Risk = &risk
	}
	claim.CheckedAt = timePtr(checked)
	claim.ApprovedAt = timePtr(approved)
	claim.RejectedAt = timePtr(rejected)
	claim.DisbursedAt = timePtr(disbursed)
	claim.CancelledAt = timePtr(cancelled)
	return &claim, nil
}

func marshalRisk(risk *models.RiskAssessment) ([]byte, error) {
	if risk == nil {
		return nil, nil
	}
	raw, err := json.Marshal(risk)
	if err != nil {
		return nil, fmt.Errorf("encode risk snapshot: %w", err)
	}
	return raw, nil
}

func nullActor(actor id.ActorID) sql.Null[uuid.UUID] {
	if actor.IsNil() {
		return sql.Null[uuid.UUID]{}
	}
	return sql.Null[uuid.UUID]{V: uuid.UUID(actor), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	cp := t.Time
	return &cp
}
