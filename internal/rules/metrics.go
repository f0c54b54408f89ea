// Package rules provides metrics for rule engine evaluation.
package rules

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRulesFired = "rules_fired_total"
	MetricRuleErrors = "rule_errors_total"
)

// Metrics contains Prometheus metrics for rule engine evaluation.
// All operations are thread-safe.
type Metrics struct {
	rulesFired *prometheus.CounterVec
	ruleErrors *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rulesFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRulesFired,
				Help: "Total number of automatic questions created, by rule",
			},
			[]string{"rule_id"},
		),
		ruleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRuleErrors,
				Help: "Total number of failed rule evaluations, by rule",
			},
			[]string{"rule_id"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rulesFired,
		m.ruleErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRulesFired increments the fired counter for a rule.
func (m *Metrics) IncRulesFired(ruleID string) {
	m.rulesFired.WithLabelValues(ruleID).Inc()
}

// IncRuleErrors increments the error counter for a rule.
func (m *Metrics) IncRuleErrors(ruleID string) {
	m.ruleErrors.WithLabelValues(ruleID).Inc()
}
