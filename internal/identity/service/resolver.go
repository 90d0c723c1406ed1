package service

import (
	"context"
	"errors"

	"benefid/internal/identity/models"
	"benefid/internal/identity/phonetic"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/audit"
	"benefid/pkg/platform/sentinel"
	"benefid/pkg/requestcontext"
)

// Resolve returns the golden record for the given identifying fields,
// creating one when no exact match exists. Repeated calls with the same
// normalized (first, last, birth date) triple return the same row, even
// under concurrent submission: the store serializes the check-and-create
// per triple. Fuzzy variants deliberately resolve to distinct rows; routing
// those to one record is the pair whitelist's job after adjudication.
func (s *Service) Resolve(ctx context.Context, input models.NewIdentityInput) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Resolve")
	defer span.End()

	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	candidate := &models.Identity{
		ID:             id.NewIdentityID(),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		MiddleName:     input.MiddleName,
		Suffix:         input.Suffix,
		BirthDate:      input.BirthDate,
		Gender:         input.Gender,
		PhoneticCode:   phonetic.Code(input.LastName),
		JurisdictionID: input.JurisdictionID,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	identity, created, err := s.identities.ResolveExact(ctx, candidate)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrLockNotAcquired):
			s.metrics.IncResolution("conflict")
			return nil, dErrors.New(dErrors.CodeConflict,
				"identity resolution contended, retry with backoff")
		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncResolution("conflict")
			return nil, dErrors.New(dErrors.CodeConflict,
				"identity was created concurrently outside the resolver")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity resolution failed")
		}
	}

	action := audit.EventIdentityResolved
	outcome := "found"
	if created {
		action = audit.EventIdentityCreated
		outcome = "created"
	}
	s.metrics.IncResolution(outcome)
	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    action,
		Subject:   "identity:" + identity.ID.String(),
		Actor:     requestcontext.Actor(ctx).String(),
		RequestID: requestcontext.RequestID(ctx),
		Properties: map[string]string{
			"phonetic_code": identity.PhoneticCode,
			"jurisdiction":  identity.JurisdictionID.String(),
		},
	})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "identity resolved",
			"identity_id", identity.ID, "created", created)
	}
	return identity, nil
}

// Get loads one identity.
func (s *Service) Get(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity id is required")
	}
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return identity, nil
}

// Deactivate soft-retires an identity. Records are never deleted.
func (s *Service) Deactivate(ctx context.Context, identityID id.IdentityID, actor id.ActorID) error {
	if identityID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity id is required")
	}
	now := requestcontext.Now(ctx)
	if err := s.identities.SetActive(ctx, identityID, false, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate identity")
	}
	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.EventIdentityDeactivated,
		Subject:   "identity:" + identityID.String(),
		Actor:     actor.String(),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}
