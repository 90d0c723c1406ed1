package service

import (
	"context"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"

	"benefid/internal/identity/models"
	"benefid/internal/identity/phonetic"
	"benefid/internal/thresholds"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
)

// FindCandidates returns identities that plausibly duplicate the queried
// name, ranked by similarity. The pipeline, in order: phonetic prefilter on
// the surname, whitelist suppression of adjudicated-distinct pairs, self
// exclusion, edit-distance cut at the configured threshold, scoring, and a
// score-descending sort tie-broken by most recent claim activity.
//
// An empty result is a normal outcome, not an error. This method never
// mutates state and reads a consistent snapshot; a candidate created
// concurrently may be missed, which is an accepted trade-off.
func (s *Service) FindCandidates(ctx context.Context, firstName, lastName string, birthDate time.Time, excludeID *id.IdentityID) ([]models.CandidateMatch, error) {
	ctx, span := s.tracer.Start(ctx, "identity.FindCandidates")
	defer span.End()
	start := time.Now()

	firstName = models.NormalizeName(firstName)
	lastName = models.NormalizeName(lastName)
	if lastName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "last name is required")
	}

	candidates, err := s.identities.ListActiveByPhoneticCode(ctx, phonetic.Code(lastName))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "candidate lookup failed")
	}

	suppressed, err := s.suppressedPartners(ctx, excludeID)
	if err != nil {
		return nil, err
	}

	maxDistance := s.thresholds.GetInt(ctx, thresholds.KeyEditDistanceThreshold)
	queryKey := models.MatchKey(firstName, lastName)

	matches := make([]models.CandidateMatch, 0, len(candidates))
	for _, candidate := range candidates {
		if excludeID != nil && candidate.ID == *excludeID {
			continue
		}
		if _, ok := suppressed[candidate.ID]; ok {
			continue
		}
		distance := levenshtein.ComputeDistance(queryKey, models.MatchKey(candidate.FirstName, candidate.LastName))
		if distance > maxDistance {
			continue
		}
		matches = append(matches, models.CandidateMatch{
			Identity: candidate,
			Distance: distance,
			Score:    models.ScoreForDistance(distance),
		})
	}

	s.fillClaimActivity(ctx, matches)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return laterClaim(matches[i].LastClaimAt, matches[j].LastClaimAt)
	})

	s.metrics.ObserveMatch(time.Since(start), len(matches))
	return matches, nil
}

func (s *Service) suppressedPartners(ctx context.Context, excludeID *id.IdentityID) (map[id.IdentityID]struct{}, error) {
	if excludeID == nil || s.pairs == nil {
		return nil, nil
	}
	partners, err := s.pairs.ConfirmedDistinctPartners(ctx, *excludeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "whitelist lookup failed")
	}
	return partners, nil
}

func (s *Service) fillClaimActivity(ctx context.Context, matches []models.CandidateMatch) {
	if s.claims == nil {
		return
	}
	for i := range matches {
		lastAt, err := s.claims.LastClaimAt(ctx, matches[i].Identity.ID)
		if err != nil {
			// Tie-break data only; ranking falls back to score order.
			if s.logger != nil {
				s.logger.DebugContext(ctx, "claim activity lookup failed",
					"identity_id", matches[i].Identity.ID, "error", err)
			}
			continue
		}
		matches[i].LastClaimAt = lastAt
	}
}

func laterClaim(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
