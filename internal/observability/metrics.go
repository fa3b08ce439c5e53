// Package observability exposes Prometheus metrics for the cache and
// credential-resolution layers.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CacheHitsTotal        *prometheus.CounterVec
	CacheMissesTotal      *prometheus.CounterVec
	CacheExpiredTotal     *prometheus.CounterVec
	CacheSweepRemoved     prometheus.Counter
	CredentialFallbacks   *prometheus.CounterVec
	DailyRefreshRunsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registerer.
// Passing nil uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Cache reads served from a fresh entry",
			},
			[]string{"provider"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Cache reads with no stored entry",
			},
			[]string{"provider"},
		),
		CacheExpiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "cache",
				Name:      "expired_evictions_total",
				Help:      "Entries evicted lazily on read because their TTL had passed",
			},
			[]string{"provider"},
		),
		CacheSweepRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "cache",
				Name:      "sweep_removed_total",
				Help:      "Entries removed by the periodic expiry sweep",
			},
		),
		CredentialFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "credentials",
				Name:      "fallback_total",
				Help:      "Resolutions that fell back to default credentials because the stored blob was malformed",
			},
			[]string{"provider"},
		),
		DailyRefreshRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cloudlens",
				Subsystem: "refresh",
				Name:      "runs_total",
				Help:      "Daily refresh executions by outcome",
			},
			[]string{"provider", "outcome"},
		),
	}
}

// NewTestMetrics creates metrics on a throwaway registry, for tests.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
