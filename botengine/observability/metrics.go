// Prometheus counters and histograms for the message pipeline, exposed on
// the gateway's /metrics endpoint.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// EVENT METRICS
// =============================================================================

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendant_events_total",
			Help: "Total webhook events received",
		},
		[]string{"kind", "status"}, // status: processed, dropped, duplicate, error
	)

	eventDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendant_event_duration_seconds",
			Help:    "Per-event processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	dedupHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendant_dedup_hits_total",
			Help: "Events dropped as provider redeliveries",
		},
	)
)

// =============================================================================
// ROUTING METRICS
// =============================================================================

var (
	handlerMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendant_handler_matches_total",
			Help: "Messages claimed per handler",
		},
		[]string{"handler"},
	)

	mutedDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendant_muted_drops_total",
			Help: "Messages silenced by an active handoff window",
		},
	)
)

// =============================================================================
// MODEL METRICS
// =============================================================================

var (
	genaiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendant_genai_calls_total",
			Help: "Generative fallback invocations",
		},
		[]string{"status"}, // status: success, throttled, error, unconfigured
	)

	genaiDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendant_genai_duration_seconds",
			Help:    "Generative fallback call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordEvent records the outcome and duration of one webhook event.
func RecordEvent(kind, status string, durationMS int) {
	eventsTotal.WithLabelValues(kind, status).Inc()
	eventDurationSeconds.WithLabelValues(kind).Observe(float64(durationMS) / 1000.0)
}

// RecordDedupHit counts a dropped redelivery.
func RecordDedupHit() {
	dedupHitsTotal.Inc()
}

// RecordHandlerMatch counts a handler claiming a message.
func RecordHandlerMatch(handler string) {
	handlerMatchesTotal.WithLabelValues(handler).Inc()
}

// RecordMutedDrop counts a message silenced by a mute window.
func RecordMutedDrop() {
	mutedDropsTotal.Inc()
}

// RecordGenAICall records one generative fallback invocation.
func RecordGenAICall(status string, durationMS int) {
	genaiCallsTotal.WithLabelValues(status).Inc()
	genaiDurationSeconds.Observe(float64(durationMS) / 1000.0)
}
