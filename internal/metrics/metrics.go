// File: internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voicechat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// AI provider calls by operation (complete, stream, transcribe) and outcome.
	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicechat",
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Total AI provider calls",
		},
		[]string{"operation", "status"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voicechat",
			Subsystem: "ai",
			Name:      "call_duration_seconds",
			Help:      "AI provider call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicechat",
			Subsystem: "relay",
			Name:      "streams_total",
			Help:      "Relayed response streams by outcome",
		},
		[]string{"outcome"},
	)

	StreamChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicechat",
			Subsystem: "relay",
			Name:      "chunks_total",
			Help:      "Relayed stream chunks by kind",
		},
		[]string{"kind"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voicechat",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordAICall records one AI provider call
func RecordAICall(operation, status string, durationSec float64) {
	AICallsTotal.WithLabelValues(operation, status).Inc()
	AICallDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordStream records how a relayed stream ended
func RecordStream(outcome string) {
	StreamsTotal.WithLabelValues(outcome).Inc()
}

func RecordStreamChunk(kind string) {
	StreamChunksTotal.WithLabelValues(kind).Inc()
}

func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
