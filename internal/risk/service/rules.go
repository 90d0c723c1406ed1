package service

import (
	"time"

	claimmodels "benefid/internal/claim/models"
	"benefid/internal/risk/models"
	id "benefid/pkg/domain"
)

// doubleDipping returns the claims that make the assessed claim a repeat
// request: same assistance type, any jurisdiction, created within windowDays
// of asOf. The claim under assessment is excluded; everything else counts by
// creation time, not by outcome.
func doubleDipping(claims []*claimmodels.Claim, assistanceType claimmodels.AssistanceType, exclude *id.ClaimID, asOf time.Time, windowDays int) []*claimmodels.Claim {
	cutoff := asOf.AddDate(0, 0, -windowDays)
	var hits []*claimmodels.Claim
	for _, c := range claims {
		if exclude != nil && c.ID == *exclude {
			continue
		}
		if c.Type != assistanceType {
			continue
		}
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		hits = append(hits, c)
	}
	return hits
}

// highFrequency reports whether the identity filed more than threshold
// claims within lookbackDays of asOf. The assessed claim itself counts.
func highFrequency(claims []*claimmodels.Claim, asOf time.Time, lookbackDays, threshold int) (int, bool) {
	cutoff := asOf.AddDate(0, 0, -lookbackDays)
	count := 0
	for _, c := range claims {
		if !c.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, count > threshold
}

// deriveLevel maps matcher output onto a risk level. Deterministic rule hits
// never leave the verdict at LOW even when no similar identity exists.
func deriveLevel(bestScore, matchCount int, rulesFired bool) models.Level {
	switch {
	case bestScore >= 90 || matchCount >= 3:
		return models.LevelHigh
	case bestScore >= 70 || matchCount >= 2:
		return models.LevelMedium
	case rulesFired:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}
