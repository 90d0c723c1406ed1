package models

import "time"

// CandidateMatch is one ranked duplicate candidate produced by the matcher.
type CandidateMatch struct {
	Identity *Identity `json:"identity"`
	// Distance is the Levenshtein distance between the query's and the
	// candidate's case-folded first+last concatenation.
	Distance int `json:"distance"`
	// Score is max(0, 100 - 10*Distance).
	Score int `json:"score"`
	// LastClaimAt breaks score ties: more recently active candidates rank
	// first. Nil when the candidate has no claims.
	LastClaimAt *time.Time `json:"last_claim_at,omitempty"`
}

// ScoreForDistance maps an edit distance onto the 0-100 similarity scale.
func ScoreForDistance(distance int) int {
	score := 100 - distance*10
	if score < 0 {
		return 0
	}
	return score
}
