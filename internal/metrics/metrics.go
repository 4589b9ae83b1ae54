package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviesearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "upstream_requests_total",
		Help:      "Total metadata provider calls by endpoint and result status.",
	}, []string{"endpoint", "status"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviesearch",
		Name:      "upstream_request_duration_seconds",
		Help:      "Metadata provider call duration in seconds, retries included.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	UpstreamRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "upstream_retries_total",
		Help:      "Extra attempts made after a connection-reset failure.",
	}, []string{"endpoint"})

	UpstreamAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviesearch",
		Name:      "upstream_available",
		Help:      "Whether the metadata provider circuit is closed (1) or open (0).",
	})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "cache_hits_total",
		Help:      "Total metadata cache hits by call kind.",
	}, []string{"kind"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "cache_misses_total",
		Help:      "Total metadata cache misses by call kind.",
	}, []string{"kind"})

	StrategySelectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "retrieval_strategy_total",
		Help:      "Retrieval strategy that produced the candidate set.",
	}, []string{"strategy"})

	EnrichmentFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviesearch",
		Name:      "enrichment_failures_total",
		Help:      "Movies returned without details because the detail lookup failed.",
	})

	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moviesearch",
		Name:      "search_duration_seconds",
		Help:      "End-to-end prompt search duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		UpstreamRetriesTotal,
		UpstreamAvailable,
		CacheHitsTotal,
		CacheMissesTotal,
		StrategySelectedTotal,
		EnrichmentFailuresTotal,
		SearchDuration,
	)
}
