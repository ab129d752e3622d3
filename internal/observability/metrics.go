// Package observability exposes Prometheus metrics for the session engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the engine and transport report into.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal      *prometheus.CounterVec
	EventErrorsTotal *prometheus.CounterVec
	EventDuration    *prometheus.HistogramVec
	BackendCalls     *prometheus.CounterVec
	BackendDuration  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbot_events_total",
			Help: "Chat events processed, by kind and wizard.",
		}, []string{"kind", "wizard"}),
		EventErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbot_event_errors_total",
			Help: "Events that ended in an error screen, by failure kind.",
		}, []string{"failure"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slotbot_event_duration_seconds",
			Help:    "Time spent handling one chat event.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		BackendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbot_backend_calls_total",
			Help: "Backend round trips, by operation and outcome.",
		}, []string{"op", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slotbot_backend_duration_seconds",
			Help:    "Backend round trip latency.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"op"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slotbot_active_sessions",
			Help: "Sessions currently stored.",
		}),
	}

	reg.MustRegister(
		m.EventsTotal,
		m.EventErrorsTotal,
		m.EventDuration,
		m.BackendCalls,
		m.BackendDuration,
		m.ActiveSessions,
	)

	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvent records one handled event.
func (m *Metrics) ObserveEvent(kind, wizard string, d time.Duration) {
	m.EventsTotal.WithLabelValues(kind, wizard).Inc()
	m.EventDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveBackend records one backend round trip.
func (m *Metrics) ObserveBackend(op, outcome string, d time.Duration) {
	m.BackendCalls.WithLabelValues(op, outcome).Inc()
	m.BackendDuration.WithLabelValues(op).Observe(d.Seconds())
}
