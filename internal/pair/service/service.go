// Package service implements the verified-pair whitelist: manual
// adjudications that override automated duplicate matching.
package service

import (
	"context"
	"errors"
	"log/slog"

	"benefid/internal/pair/models"
	"benefid/internal/pair/store"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/platform/sentinel"
	"benefid/pkg/requestcontext"
)

// AuditPublisher records pair adjudication events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates pair verification, lookup and revocation.
type Service struct {
	pairs    store.Store
	logger   *slog.Logger
	auditPub AuditPublisher
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

// New constructs a Service.
func New(pairs store.Store, opts ...Option) *Service {
	s := &Service{pairs: pairs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyInput carries one adjudication.
type VerifyInput struct {
	IdentityA id.IdentityID
	IdentityB id.IdentityID
	Status    models.Status
	Reason    string
	// Similarity metrics at verification time, kept for audit.
	Distance int
	Score    int
	Actor    id.ActorID
}

// Verify records an adjudicated pair. The identity order the caller used is
// irrelevant: the pair is canonicalized before storage so a later lookup
// with either order resolves to the same row. Creating a second active pair
// for the same unordered pair is a conflict; the caller must revoke first.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (*models.VerifiedPair, error) {
	a, b, err := models.Canonicalize(input.IdentityA, input.IdentityB)
	if err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid pair status %q", input.Status)
	}
	if input.Reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "adjudication reason is required")
	}
	if input.Actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "verifying actor is required")
	}

	now := requestcontext.Now(ctx)
	pair := &models.VerifiedPair{
		ID:         id.NewPairID(),
		IdentityA:  a,
		IdentityB:  b,
		Status:     input.Status,
		Reason:     input.Reason,
		Distance:   input.Distance,
		Score:      input.Score,
		VerifiedBy: input.Actor,
		VerifiedAt: now,
	}

	if err := s.pairs.CreateIfNoActive(ctx, pair); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict,
				"an active pair already exists for these identities, revoke it first")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verified pair")
	}

	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.EventPairVerified,
		Subject:   "pair:" + pair.ID.String(),
		Actor:     input.Actor.String(),
		Reason:    input.Reason,
		RequestID: requestcontext.RequestID(ctx),
		Properties: map[string]string{
			"identity_a": a.String(),
			"identity_b": b.String(),
			"status":     string(input.Status),
		},
	})
	return pair, nil
}

// Lookup returns the active pair for two identities in either order, or nil
// when none exists.
func (s *Service) Lookup(ctx context.Context, identityA, identityB id.IdentityID) (*models.VerifiedPair, error) {
	a, b, err := models.Canonicalize(identityA, identityB)
	if err != nil {
		return nil, err
	}
	pair, err := s.pairs.FindActive(ctx, a, b)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pair lookup failed")
	}
	return pair, nil
}

// Revoke retires an adjudication. The row survives for the audit trail;
// only its status and revocation fields change.
func (s *Service) Revoke(ctx context.Context, pairID id.PairID, actor id.ActorID, reason string) error {
	if pairID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "pair id is required")
	}
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "revoking actor is required")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "revocation reason is required")
	}

	now := requestcontext.Now(ctx)
	pair, err := s.pairs.Revoke(ctx, pairID, actor, reason, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "pair not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeInvalidState, "pair is already revoked")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke pair")
		}
	}

	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.EventPairRevoked,
		Subject:   "pair:" + pair.ID.String(),
		Actor:     actor.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// ConfirmedDistinctPartners implements the matcher's suppression port: the
// set of identities adjudicated distinct from identityID across active pairs.
func (s *Service) ConfirmedDistinctPartners(ctx context.Context, identityID id.IdentityID) (map[id.IdentityID]struct{}, error) {
	partners, err := s.pairs.ListActiveDistinctPartners(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "distinct partner lookup failed")
	}
	set := make(map[id.IdentityID]struct{}, len(partners))
	for _, partner := range partners {
		set[partner] = struct{}{}
	}
	return set, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
