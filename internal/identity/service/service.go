// Package service implements identity resolution (golden record
// find-or-create) and hybrid duplicate matching.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	identitymetrics "benefid/internal/identity/metrics"
	"benefid/internal/identity/store"
	id "benefid/pkg/domain"
	"benefid/pkg/platform/audit"
)

// PairSuppressor reports adjudicated-distinct partners of an identity so the
// matcher can suppress known false positives. Implemented by the pair
// whitelist service.
type PairSuppressor interface {
	ConfirmedDistinctPartners(ctx context.Context, identityID id.IdentityID) (map[id.IdentityID]struct{}, error)
}

// ClaimActivity supplies the most recent claim time per identity, used only
// as the matcher's ranking tie-break. Implemented by the claim store.
type ClaimActivity interface {
	LastClaimAt(ctx context.Context, identityID id.IdentityID) (*time.Time, error)
}

// ThresholdProvider supplies the configured edit-distance threshold at call
// time so admin changes apply to the next search.
type ThresholdProvider interface {
	GetInt(ctx context.Context, key string) int
}

// AuditPublisher records resolution events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates identity resolution and candidate matching.
type Service struct {
	identities store.Store
	pairs      PairSuppressor
	claims     ClaimActivity
	thresholds ThresholdProvider
	logger     *slog.Logger
	auditPub   AuditPublisher
	metrics    *identitymetrics.Metrics
	tracer     trace.Tracer
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

// WithMetrics sets the metrics collector.
func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClaimActivity sets the tie-break activity source.
func WithClaimActivity(claims ClaimActivity) Option {
	return func(s *Service) { s.claims = claims }
}

// WithPairSuppressor sets the whitelist suppression source.
func WithPairSuppressor(pairs PairSuppressor) Option {
	return func(s *Service) { s.pairs = pairs }
}

// New constructs a Service. The identity store and threshold provider are
// required; suppression, activity, audit, logging and metrics are optional
// collaborators.
func New(identities store.Store, thresholds ThresholdProvider, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		thresholds: thresholds,
		tracer:     otel.Tracer("benefid/identity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
