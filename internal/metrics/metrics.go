// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"}, // mode: vector / hybrid
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kensaku",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SearchCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kensaku",
			Name:      "search_candidates",
			Help:      "Number of documents returned by each search stage",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"stage"}, // vector / lexical / result
	)

	DimensionFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "dimension_fallbacks_total",
			Help:      "Queries whose embedding length matched no supported dimension",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kensaku",
			Name:      "backend_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// Embedding metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "status"},
	)

	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kensaku",
			Name:      "embedding_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider"},
	)

	EmbeddingCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "embedding_cache_hits_total",
			Help:      "Embeddings served from the in-process cache",
		},
		[]string{"provider"},
	)
)

// WatchEventsTotal counts file changes acted on by the directory watcher.
var WatchEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kensaku",
		Name:      "watch_events_total",
		Help:      "File changes handled by the directory watcher",
	},
	[]string{"action"}, // index / remove / directory
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(DimensionFallbacksTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingDuration)
	prometheus.MustRegister(EmbeddingCacheHitsTotal)
	prometheus.MustRegister(WatchEventsTotal)
}
