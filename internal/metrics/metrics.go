// Package metrics holds the Prometheus instruments for circulation and the
// recommendation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CirculationEvents counts lifecycle transitions and counter bumps.
	// event: checkout, return, overdue, cancel, view
	CirculationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_circulation_events_total",
			Help: "Total number of circulation events by type",
		},
		[]string{"event"},
	)

	// CirculationRejections counts checkouts and returns refused by a business rule.
	CirculationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_circulation_rejections_total",
			Help: "Total number of circulation operations rejected by kind",
		},
		[]string{"operation", "kind"},
	)

	// ChatbotQueries counts interpreted chatbot queries by resolved intent.
	ChatbotQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_chatbot_queries_total",
			Help: "Total number of chatbot queries by intent",
		},
		[]string{"intent"},
	)

	// EngineDuration observes ranking and report computations.
	EngineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_engine_duration_seconds",
			Help:    "Duration of recommendation and analytics computations in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)
)

// RecordEvent increments the circulation counter for event.
func RecordEvent(event string) {
	CirculationEvents.WithLabelValues(event).Inc()
}

// RecordRejection increments the rejection counter.
func RecordRejection(operation, kind string) {
	CirculationRejections.WithLabelValues(operation, kind).Inc()
}

// RecordIntent increments the chatbot counter for intent.
func RecordIntent(intent string) {
	ChatbotQueries.WithLabelValues(intent).Inc()
}

// ObserveSince records the time elapsed since start for operation.
// Typical use: defer metrics.ObserveSince("trending", time.Now())
func ObserveSince(operation string, start time.Time) {
	EngineDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
