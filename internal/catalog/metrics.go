package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_page_loads_total",
			Help: "Category page loads by outcome",
		},
		[]string{"outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_listing_cache_lookups_total",
			Help: "Listing cache lookups by result",
		},
		[]string{"result"},
	)

	pageSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "discovery_page_sessions",
			Help: "Category pages held for visitor sessions",
		},
	)

	staleCommitsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_stale_commits_dropped_total",
			Help: "Load results discarded because a newer generation was triggered",
		},
	)
)
