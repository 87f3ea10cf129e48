package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wander_http_requests_total",
			Help: "HTTP requests handled, by route and status code",
		},
		[]string{"route", "status"},
	)

	UpstreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wander_upstream_errors_total",
			Help: "Failed calls to the LLM provider",
		},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wander_generation_duration_seconds",
			Help:    "Duration of recommendation pipeline invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	TrendingRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wander_trending_refresh_total",
			Help: "Trending refresh invocations, by outcome",
		},
		[]string{"outcome"},
	)
)
