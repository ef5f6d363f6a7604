package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VenueFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balgate_venue_fetches_total",
		Help: "The total number of venue balance fetches by outcome",
	}, []string{"venue", "outcome"})

	CacheServes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balgate_cache_serves_total",
		Help: "Cached venue reports served instead of a live fetch",
	}, []string{"venue", "reason"})

	CycleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "balgate_cycle_latency_seconds",
		Help:    "Aggregation cycle latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
