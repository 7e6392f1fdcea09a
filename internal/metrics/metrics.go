// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Invalidation results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	LocalCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "local_cache_entries",
			Help: "Number of entries currently held in the process-local cache.",
		})

	LocalCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "local_cache_hits_total",
			Help: "Cumulative number of process-local cache hits.",
		})

	LocalCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "local_cache_misses_total",
			Help: "Cumulative number of process-local cache misses.",
		})

	LocalCacheLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "local_cache_loads_total",
			Help: "Cumulative number of loader calls on cache miss.",
		})

	LocalCacheLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "local_cache_load_errors_total",
			Help: "Cumulative number of loader errors on cache miss.",
		})

	LocalCacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "local_cache_evict_total",
			Help: "Cumulative number of entries evicted on idle TTL or LRU pressure.",
		})

	InvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Cache invalidations by result of the remote delete.",
		}, []string{"result"})

	AccountUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_connector_account_updates_total",
			Help: "Merchant connector account updates by update variant.",
		}, []string{"variant"})
)

func init() {
	prometheus.MustRegister(
		LocalCacheEntries,
		LocalCacheHitsTotal,
		LocalCacheMissesTotal,
		LocalCacheLoadsTotal,
		LocalCacheLoadErrorsTotal,
		LocalCacheEvictTotal,
		InvalidationsTotal,
		AccountUpdatesTotal,
	)
}
