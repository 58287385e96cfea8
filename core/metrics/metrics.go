// Package metrics exposes the Prometheus collectors shared by the
// gateway core. A Collector is constructed once per gateway instance
// against an explicit registry, so several gateways can live in one
// process (and in one test binary) without duplicate registration.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the request-path and cache-path metrics.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	cacheHits      *prometheus.CounterVec
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	invalidations  *prometheus.CounterVec
	sweptEntries   prometheus.Counter
	tierErrors     *prometheus.CounterVec
}

// Config controls collector construction.
type Config struct {
	// Namespace for all metric names (default "gateway").
	Namespace string

	// Registry to register against (default prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// NewCollector builds and registers the collectors.
func NewCollector(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "gateway"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "requests_total",
			Help:      "Requests dispatched, by method and response status.",
		}, []string{"method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "request_duration_seconds",
			Help:      "Dispatch pipeline latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits, by the tier that served them.",
		}, []string{"tier"}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_misses_total",
			Help:      "Lookups that missed every tier.",
		}),

		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted by capacity pressure.",
		}),

		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_invalidations_total",
			Help:      "Entries removed by explicit invalidation, by kind.",
		}, []string{"kind"}),

		sweptEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_swept_entries_total",
			Help:      "Expired entries reclaimed by the background sweep.",
		}),

		tierErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_tier_errors_total",
			Help:      "Tier operations that failed, by tier and operation.",
		}, []string{"tier", "op"}),
	}
}

// NewNopCollector builds a collector against a throwaway registry.
// Useful default so callers never need nil checks.
func NewNopCollector() *Collector {
	return NewCollector(Config{Registry: prometheus.NewRegistry()})
}

// ObserveRequest records one dispatched request.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CacheHit records a hit served by the named tier.
func (c *Collector) CacheHit(tier string) { c.cacheHits.WithLabelValues(tier).Inc() }

// CacheMiss records a lookup that missed every tier.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// CacheEviction records a capacity eviction.
func (c *Collector) CacheEviction() { c.cacheEvictions.Inc() }

// Invalidation records n entries removed by a tag or key invalidation.
func (c *Collector) Invalidation(kind string, n int) {
	c.invalidations.WithLabelValues(kind).Add(float64(n))
}

// Swept records n expired entries reclaimed by the sweep.
func (c *Collector) Swept(n int) { c.sweptEntries.Add(float64(n)) }

// TierError records a failed tier operation.
func (c *Collector) TierError(tier, op string) {
	c.tierErrors.WithLabelValues(tier, op).Inc()
}
