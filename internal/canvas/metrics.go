// Package canvas provides metrics for placement operations.
package canvas

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricPlacementsCreated     = "placements_created_total"
	MetricPlacementsDeleted     = "placements_deleted_total"
	MetricDeleteResolutionMiss  = "placement_delete_resolution_miss_total"
)

// Metrics contains Prometheus metrics for placement operations.
// All operations are thread-safe.
type Metrics struct {
	placementsCreated    prometheus.Counter
	placementsDeleted    prometheus.Counter
	deleteResolutionMiss prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		placementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPlacementsCreated,
			Help: "Total number of placements persisted",
		}),
		placementsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPlacementsDeleted,
			Help: "Total number of placements soft-deleted",
		}),
		deleteResolutionMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDeleteResolutionMiss,
			Help: "Total number of delete gestures that resolved to no candidate",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.placementsCreated,
		m.placementsDeleted,
		m.deleteResolutionMiss,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncPlacementsCreated increments the placements created counter.
func (m *Metrics) IncPlacementsCreated() {
	m.placementsCreated.Inc()
}

// IncPlacementsDeleted increments the placements deleted counter.
func (m *Metrics) IncPlacementsDeleted() {
	m.placementsDeleted.Inc()
}

// IncDeleteResolutionMiss increments the resolution miss counter.
func (m *Metrics) IncDeleteResolutionMiss() {
	m.deleteResolutionMiss.Inc()
}
