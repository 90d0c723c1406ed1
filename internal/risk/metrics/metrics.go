// Package metrics exposes prometheus instrumentation for risk assessment.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Assessments   *prometheus.CounterVec
	RuleHits      *prometheus.CounterVec
	AssessLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefid_risk_assessments_total",
			Help: "Risk assessments by resulting level.",
		}, []string{"level"}),
		RuleHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefid_risk_rule_hits_total",
			Help: "Deterministic rule hits by rule name.",
		}, []string{"rule"}),
		AssessLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "benefid_risk_assess_duration_seconds",
			Help:    "Wall time of a full risk assessment.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncAssessment(level string) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(level).Inc()
}

func (m *Metrics) IncRuleHit(rule string) {
	if m == nil {
		return
	}
	m.RuleHits.WithLabelValues(rule).Inc()
}

func (m *Metrics) ObserveAssess(d time.Duration) {
	if m == nil {
		return
	}
	m.AssessLatency.Observe(d.Seconds())
}
