// Package models defines the risk verdict produced by claim assessment.
package models

import (
	"fmt"
	"strings"
	"time"

	claimmodels "benefid/internal/claim/models"
	identitymodels "benefid/internal/identity/models"
)

// Level classifies how likely a claim is fraudulent.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Rule names a deterministic rule that fired during assessment.
type Rule string

const (
	RuleDoubleDipping Rule = "double_dipping"
	RuleHighFrequency Rule = "high_frequency"
)

// Verdict is the outcome of one risk assessment. It is produced fresh each
// time and never persisted on its own; the claim stores a snapshot at
// decision time because thresholds drift and the verdict is not re-derivable.
type Verdict struct {
	Level    Level
	Risky    bool
	Detail   string
	RuleHits []Rule

	Candidates   []identitymodels.CandidateMatch
	RecentClaims []*claimmodels.Claim
	AssessedAt   time.Time
}

// BestScore is the highest similarity score among candidates, 0 when none.
func (v *Verdict) BestScore() int {
	best := 0
	for _, c := range v.Candidates {
		if c.Score > best {
			best = c.Score
		}
	}
	return best
}

// Snapshot flattens the verdict into the immutable form embedded in a claim.
func (v *Verdict) Snapshot() *claimmodels.RiskAssessment {
	hits := make([]string, 0, len(v.RuleHits))
	for _, r := range v.RuleHits {
		hits = append(hits, string(r))
	}
	return &claimmodels.RiskAssessment{
		Level:            string(v.Level),
		Risky:            v.Risky,
		Detail:           v.Detail,
		RuleHits:         hits,
		BestScore:        v.BestScore(),
		CandidateCount:   len(v.Candidates),
		RecentClaimCount: len(v.RecentClaims),
		AssessedAt:       v.AssessedAt,
	}
}

// Describe renders a human-readable detail line for the verdict.
func Describe(level Level, hits []Rule, candidateCount, bestScore int) string {
	parts := make([]string, 0, 3)
	for _, hit := range hits {
		parts = append(parts, string(hit))
	}
	if candidateCount > 0 {
		parts = append(parts, fmt.Sprintf("%d similar identities (best score %d)", candidateCount, bestScore))
	}
	if len(parts) == 0 {
		return "no risk indicators"
	}
	return fmt.Sprintf("level %s: %s", level, strings.Join(parts, "; "))
}
