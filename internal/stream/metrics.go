// Package stream provides metrics for canvas event broadcasting.
package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricEventsBroadcast       = "canvas_events_broadcast_total"
	MetricSubscriberWriteErrors = "canvas_subscriber_write_errors_total"
)

// Metrics contains Prometheus metrics for event broadcasting.
// All operations are thread-safe.
type Metrics struct {
	eventsBroadcast       *prometheus.CounterVec
	subscriberWriteErrors prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsBroadcast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsBroadcast,
				Help: "Total number of canvas events broadcast, by event type",
			},
			[]string{"type"},
		),
		subscriberWriteErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSubscriberWriteErrors,
				Help: "Total number of failed writes to websocket subscribers",
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsBroadcast,
		m.subscriberWriteErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEventsBroadcast increments the broadcast counter for an event type.
func (m *Metrics) IncEventsBroadcast(eventType string) {
	m.eventsBroadcast.WithLabelValues(eventType).Inc()
}

// IncSubscriberWriteErrors increments the failed-write counter.
func (m *Metrics) IncSubscriberWriteErrors() {
	m.subscriberWriteErrors.Inc()
}
