package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversation engine metrics
var (
	// Context assembly
	ContextsBuiltTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "contexts_built_total",
			Help:      "Total conversation contexts assembled from history",
		},
	)

	ContextCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "context_cache_hits_total",
			Help:      "Context builds served from the TTL cache",
		},
	)

	ContextCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "context_cache_misses_total",
			Help:      "Context builds that missed the TTL cache",
		},
	)

	// Prediction dispatch
	PredictionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "prediction_requests_total",
			Help:      "Settled prediction dispatches by outcome",
		},
		[]string{"status"},
	)

	PredictionRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "prediction_retries_total",
			Help:      "Prediction call retry attempts",
		},
	)

	CoalescedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "coalesced_requests_total",
			Help:      "Requests that attached to an identical in-flight call",
		},
	)

	// Streaming delivery
	StreamsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "streams_total",
			Help:      "Streamed replies started",
		},
	)

	StreamsStoppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorchat",
			Subsystem: "engine",
			Name:      "streams_stopped_total",
			Help:      "Streamed replies cancelled mid-flight by the caller",
		},
	)
)
