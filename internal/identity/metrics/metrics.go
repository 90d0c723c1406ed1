package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for identity resolution and matching.
type Metrics struct {
	// Resolution outcomes: created, found, conflict
	Resolutions *prometheus.CounterVec

	// Candidate search latency including the phonetic prefilter
	MatchLatency prometheus.Histogram

	// Candidates surviving all matcher filters per search
	MatchCandidates prometheus.Histogram
}

// New creates a Metrics instance with all identity metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefid_identity_resolutions_total",
			Help: "Total identity resolution outcomes",
		}, []string{"outcome"}), // outcome: "created", "found", "conflict"

		MatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "benefid_identity_match_duration_seconds",
			Help:    "Duration of duplicate candidate searches",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		MatchCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "benefid_identity_match_candidates",
			Help:    "Candidates returned per duplicate search",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
	}
}

// IncResolution records a resolution outcome.
func (m *Metrics) IncResolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}

// ObserveMatch records one candidate search.
func (m *Metrics) ObserveMatch(d time.Duration, candidates int) {
	if m != nil {
		m.MatchLatency.Observe(d.Seconds())
		m.MatchCandidates.Observe(float64(candidates))
	}
}
