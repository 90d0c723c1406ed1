// Package service implements the claim lifecycle: creation with an
// outbox-dispatched fraud check, guarded state transitions and the budget
// increment on disbursement.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	claimmetrics "benefid/internal/claim/metrics"
	"benefid/internal/claim/models"
	"benefid/internal/claim/store"
	riskmodels "benefid/internal/risk/models"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/audit"
	"benefid/pkg/platform/outbox"
	"benefid/pkg/requestcontext"
)

// RiskAssessor produces a verdict for the fraud check.
type RiskAssessor interface {
	Assess(ctx context.Context, identityID id.IdentityID, assistanceType models.AssistanceType, excludeClaimID *id.ClaimID) (*riskmodels.Verdict, error)
}

// TxRunner runs a function inside one database transaction carried in the
// context. tx.Passthrough serves memory-backed setups.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records lifecycle events. It is fail-closed: an emit error
// aborts the enclosing transaction for state-changing operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the claim lifecycle.
type Service struct {
	claims   store.Store
	budgets  store.BudgetStore
	outbox   outbox.Store
	runner   TxRunner
	risk     RiskAssessor
	logger   *slog.Logger
	auditPub AuditPublisher
	metrics  *claimmetrics.Metrics
	tracer   trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(pub AuditPublisher) Option {
	return func(s *Service) { s.auditPub = pub }
}

// WithMetrics sets prometheus instrumentation.
func WithMetrics(m *claimmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(claims store.Store, budgets store.BudgetStore, outboxStore outbox.Store, runner TxRunner, risk RiskAssessor, opts ...Option) *Service {
	s := &Service{
		claims:  claims,
		budgets: budgets,
		outbox:  outboxStore,
		runner:  runner,
		risk:    risk,
		tracer:  otel.Tracer("benefid/claim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) error {
	if s.auditPub == nil {
		return nil
	}
	return s.auditPub.Emit(ctx, event)
}

func (s *Service) auditEvent(ctx context.Context, action string, claim *models.Claim, actor id.ActorID, reason string, extra map[string]string) audit.Event {
	props := map[string]string{
		"identity_id":     claim.IdentityID.String(),
		"jurisdiction_id": claim.JurisdictionID.String(),
		"state":           string(claim.State),
	}
	for k, v := range extra {
		props[k] = v
	}
	return audit.Event{
		Timestamp:  requestcontext.Now(ctx),
		Action:     action,
		Subject:    "claim:" + claim.ID.String(),
		Actor:      actor.String(),
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
		Properties: props,
	}
}
