// Package metrics exposes reconnection engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"soundlink/internal/reconnect"
)

// Metrics holds the prometheus collectors fed by the tracking sink.
type Metrics struct {
	attempts  *prometheus.CounterVec
	durations prometheus.Histogram
	clients   prometheus.GaugeFunc
}

// New registers the engine collectors on reg. clientCount supplies the
// current number of tracked clients.
func New(reg prometheus.Registerer, clientCount func() int) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soundlink",
			Subsystem: "reconnect",
			Name:      "attempts_total",
			Help:      "Tracked reconnection attempts by outcome.",
		}, []string{"outcome"}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soundlink",
			Subsystem: "reconnect",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of tracked reconnection attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		clients: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "soundlink",
			Subsystem: "reconnect",
			Name:      "tracked_clients",
			Help:      "Clients currently held in the reconnection state store.",
		}, func() float64 { return float64(clientCount()) }),
	}
	reg.MustRegister(m.attempts, m.durations, m.clients)
	return m
}

// TrackAttempt implements reconnect.Sink.
func (m *Metrics) TrackAttempt(e reconnect.Event) {
	outcome := "failure"
	if e.Record.Success {
		outcome = "success"
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.durations.Observe(e.Record.DurationMs / 1000)
}
