// Package metrics exposes prometheus instrumentation for the claim lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Created     prometheus.Counter
	Transitions *prometheus.CounterVec
	FraudChecks *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "benefid_claims_created_total",
			Help: "Claims opened.",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefid_claim_transitions_total",
			Help: "Claim state transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		FraudChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "benefid_fraud_checks_total",
			Help: "Fraud check runs by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncCreated() {
	if m == nil {
		return
	}
	m.Created.Inc()
}

func (m *Metrics) IncTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) IncFraudCheck(outcome string) {
	if m == nil {
		return
	}
	m.FraudChecks.WithLabelValues(outcome).Inc()
}
