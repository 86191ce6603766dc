package downstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_upstream_requests_total",
			Help: "Discovery API requests by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_upstream_request_duration_seconds",
			Help:    "Discovery API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"resource"},
	)

	upstreamQuotaAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "discovery_upstream_quota_available",
			Help: "Last Rate-Limit-Available value reported by the Discovery API",
		},
	)
)
