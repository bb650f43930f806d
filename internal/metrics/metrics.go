// Package metrics provides application-level metrics collection.
// Totals are kept in atomic counters for cheap snapshots; the same events are
// exported to Prometheus for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Upstream metrics
	upstreamCallsTotal   atomic.Int64
	upstreamErrorsTotal  atomic.Int64
	upstreamLatencyNanos atomic.Int64

	// Inbound metrics
	requestsTotal    atomic.Int64
	rateLimitedTotal atomic.Int64

	// Cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

//nolint:gochecknoglobals // Prometheus collectors are process-wide
var (
	prometheusUpstreamCalls   *prometheus.CounterVec
	prometheusUpstreamLatency *prometheus.HistogramVec
	prometheusHTTPRequests    *prometheus.CounterVec
	prometheusRateLimited     *prometheus.CounterVec
	prometheusCache           *prometheus.CounterVec

	prometheusInitOnce sync.Once
)

// initPrometheusMetrics registers the collectors exactly once.
func initPrometheusMetrics() {
	prometheusInitOnce.Do(func() {
		prometheusUpstreamCalls = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cashgate",
				Subsystem: "upstream",
				Name:      "calls_total",
				Help:      "Number of upstream calls by upstream and outcome",
			},
			[]string{"upstream", "outcome"},
		)

		prometheusUpstreamLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cashgate",
				Subsystem: "upstream",
				Name:      "latency_seconds",
				Help:      "Upstream call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"upstream"},
		)

		prometheusHTTPRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cashgate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		)

		prometheusRateLimited = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cashgate",
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Number of requests rejected by the rate limiter",
			},
			[]string{"tier"},
		)

		prometheusCache = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cashgate",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by result",
			},
			[]string{"result"},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	initPrometheusMetrics()
	return promhttp.Handler()
}

// RecordUpstreamCall records an upstream call with its duration and outcome.
func (m *Metrics) RecordUpstreamCall(upstream string, duration time.Duration, err error) {
	initPrometheusMetrics()

	m.upstreamCallsTotal.Add(1)
	m.upstreamLatencyNanos.Add(duration.Nanoseconds())

	outcome := "ok"
	if err != nil {
		m.upstreamErrorsTotal.Add(1)
		outcome = "error"
	}

	prometheusUpstreamCalls.WithLabelValues(upstream, outcome).Inc()
	prometheusUpstreamLatency.WithLabelValues(upstream).Observe(duration.Seconds())
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	initPrometheusMetrics()

	m.requestsTotal.Add(1)
	prometheusHTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(tier string) {
	initPrometheusMetrics()

	m.rateLimitedTotal.Add(1)
	prometheusRateLimited.WithLabelValues(tier).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	initPrometheusMetrics()

	m.cacheHits.Add(1)
	prometheusCache.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	initPrometheusMetrics()

	m.cacheMisses.Add(1)
	prometheusCache.WithLabelValues("miss").Inc()
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	UpstreamCallsTotal   int64
	UpstreamErrorsTotal  int64
	UpstreamLatencyNanos int64
	RequestsTotal        int64
	RateLimitedTotal     int64
	CacheHits            int64
	CacheMisses          int64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		UpstreamCallsTotal:   m.upstreamCallsTotal.Load(),
		UpstreamErrorsTotal:  m.upstreamErrorsTotal.Load(),
		UpstreamLatencyNanos: m.upstreamLatencyNanos.Load(),
		RequestsTotal:        m.requestsTotal.Load(),
		RateLimitedTotal:     m.rateLimitedTotal.Load(),
		CacheHits:            m.cacheHits.Load(),
		CacheMisses:          m.cacheMisses.Load(),
	}
}

// UpstreamLatencyAvgMs returns the average upstream latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) UpstreamLatencyAvgMs() float64 {
	calls := m.upstreamCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.upstreamLatencyNanos.Load()) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
// Returns 0 if no cache operations have occurred.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets the atomic totals to zero. Prometheus counters are monotonic
// and are left alone.
func (m *Metrics) Reset() {
	m.upstreamCallsTotal.Store(0)
	m.upstreamErrorsTotal.Store(0)
	m.upstreamLatencyNanos.Store(0)
	m.requestsTotal.Store(0)
	m.rateLimitedTotal.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
}
