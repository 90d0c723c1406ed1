// Package service implements the risk scorer: deterministic claim-history
// rules plus similarity-based level derivation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	claimmodels "benefid/internal/claim/models"
	identitymodels "benefid/internal/identity/models"
	riskmetrics "benefid/internal/risk/metrics"
	"benefid/internal/risk/models"
	"benefid/internal/thresholds"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/requestcontext"
)

// ClaimHistory supplies the claims the deterministic rules run over.
type ClaimHistory interface {
	ListByIdentitySince(ctx context.Context, identityID id.IdentityID, since time.Time) ([]*claimmodels.Claim, error)
}

// Matcher resolves an identity and finds its duplicate candidates.
type Matcher interface {
	Get(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
	FindCandidates(ctx context.Context, firstName, lastName string, birthDate time.Time, excludeID *id.IdentityID) ([]identitymodels.CandidateMatch, error)
}

// ThresholdProvider supplies the tunables, re-read on every assessment so an
// admin change takes effect without a restart.
type ThresholdProvider interface {
	GetInt(ctx context.Context, key string) int
}

// Service assesses claims for fraud risk.
type Service struct {
	claims     ClaimHistory
	matcher    Matcher
	thresholds ThresholdProvider
	logger     *slog.Logger
	metrics    *riskmetrics.Metrics
	tracer     trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets prometheus instrumentation.
func WithMetrics(m *riskmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(claims ClaimHistory, matcher Matcher, provider ThresholdProvider, opts ...Option) *Service {
	s := &Service{
		claims:     claims,
		matcher:    matcher,
		thresholds: provider,
		tracer:     otel.Tracer("benefid/risk"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess evaluates an identity's claim history and lookalike identities and
// returns a verdict. excludeClaimID is the claim being assessed, so it does
// not trip the double-dipping rule against itself; it still counts toward
// claim frequency. Assess never mutates state.
func (s *Service) Assess(ctx context.Context, identityID id.IdentityID, assistanceType claimmodels.AssistanceType, excludeClaimID *id.ClaimID) (*models.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "risk.Assess",
		trace.WithAttributes(attribute.String("identity.id", identityID.String())))
	defer span.End()

	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity id is required")
	}
	if !assistanceType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown assistance type %q", assistanceType)
	}

	asOf := requestcontext.Now(ctx)
	started := time.Now()

	lookbackDays := s.thresholds.GetInt(ctx, thresholds.KeyRiskLookbackDays)
	windowDays := s.thresholds.GetInt(ctx, thresholds.KeySameTypeWindowDays)
	frequencyMax := s.thresholds.GetInt(ctx, thresholds.KeyHighFrequencyThreshold)

	identity, err := s.matcher.Get(ctx, identityID)
	if err != nil {
		return nil, err
	}

	// One history fetch covers both rules: the lookback window subsumes the
	// same-type window whenever thresholds keep their documented ordering,
	// and the wider of the two is used when an admin inverts them.
	horizonDays := lookbackDays
	if windowDays > horizonDays {
		horizonDays = windowDays
	}
	history, err := s.claims.ListByIdentitySince(ctx, identityID, asOf.AddDate(0, 0, -horizonDays))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "claim history lookup failed")
	}

	var hits []models.Rule
	repeats := doubleDipping(history, assistanceType, excludeClaimID, asOf, windowDays)
	if len(repeats) > 0 {
		hits = append(hits, models.RuleDoubleDipping)
	}
	recentCount, frequent := highFrequency(history, asOf, lookbackDays, frequencyMax)
	if frequent {
		hits = append(hits, models.RuleHighFrequency)
	}

	candidates, err := s.matcher.FindCandidates(ctx, identity.FirstName, identity.LastName, identity.BirthDate, &identityID)
	if err != nil {
		return nil, err
	}

	verdict := &models.Verdict{
		RuleHits:     hits,
		Candidates:   candidates,
		RecentClaims: recentWithin(history, asOf, lookbackDays),
		AssessedAt:   asOf,
	}
	verdict.Level = deriveLevel(verdict.BestScore(), len(candidates), len(hits) > 0)
	verdict.Risky = verdict.Level != models.LevelLow || len(hits) > 0
	verdict.Detail = models.Describe(verdict.Level, hits, len(candidates), verdict.BestScore())

	for _, hit := range hits {
		s.metrics.IncRuleHit(string(hit))
	}
	s.metrics.IncAssessment(string(verdict.Level))
	s.metrics.ObserveAssess(time.Since(started))

	if verdict.Risky && s.logger != nil {
		s.logger.InfoContext(ctx, "risky assessment",
			"identity_id", identityID,
			"level", verdict.Level,
			"rules", fmt.Sprint(hits),
			"candidates", len(candidates),
			"recent_claims", recentCount)
	}
	span.SetAttributes(
		attribute.String("risk.level", string(verdict.Level)),
		attribute.Bool("risk.risky", verdict.Risky))
	return verdict, nil
}

func recentWithin(claims []*claimmodels.Claim, asOf time.Time, lookbackDays int) []*claimmodels.Claim {
	cutoff := asOf.AddDate(0, 0, -lookbackDays)
	var recent []*claimmodels.Claim
	for _, c := range claims {
		if !c.CreatedAt.Before(cutoff) {
			recent = append(recent, c)
		}
	}
	return recent
}
