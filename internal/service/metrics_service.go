package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const metricsNamespace = "campus_connect"

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	applications    prometheus.Counter
	payouts         *prometheus.CounterVec
	relayClients    prometheus.Gauge
	relayDropped    prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	applicationCount     uint64
	relayDroppedCount    uint64
	relayClientCount     int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_latency_seconds",
		Help:      "Latency for cache lookups",
		Buckets:   prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_write_seconds",
		Help:      "Latency for cache set operations",
		Buckets:   prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hit_ratio",
		Help:      "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_misses_total",
		Help:      "Total cache misses",
	})

	applications := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "job_applications_submitted_total",
		Help:      "Job applications accepted",
	})

	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ambassador_payout_transfers_total",
		Help:      "Payout transfer attempts by outcome",
	}, []string{"outcome"})

	relayClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "live_session_connections",
		Help:      "Open live-session websocket connections on this instance",
	})

	relayDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "live_session_dropped_messages_total",
		Help:      "Relay messages dropped because a client buffer was full",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines_total",
		Help:      "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		applications, payouts, relayClients, relayDropped, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		applications:    applications,
		payouts:         payouts,
		relayClients:    relayClients,
		relayDropped:    relayDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ApplicationSubmitted counts an accepted job application.
func (m *MetricsService) ApplicationSubmitted() {
	if m == nil {
		return
	}
	m.applications.Inc()
	atomic.AddUint64(&m.applicationCount, 1)
}

// PayoutTransfer counts a gateway call by outcome ("paid" or "failed").
func (m *MetricsService) PayoutTransfer(outcome string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(outcome).Inc()
}

// RelayConnected adjusts the open websocket gauge by delta.
func (m *MetricsService) RelayConnected(delta int) {
	if m == nil {
		return
	}
	m.relayClients.Add(float64(delta))
	atomic.AddInt64(&m.relayClientCount, int64(delta))
}

// RelayDropped counts a message dropped for a slow client.
func (m *MetricsService) RelayDropped() {
	if m == nil {
		return
	}
	m.relayDropped.Inc()
	atomic.AddUint64(&m.relayDroppedCount, 1)
}

// Snapshot returns aggregated metrics for the admin endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		ApplicationsSubmitted:    atomic.LoadUint64(&m.applicationCount),
		RelayConnections:         atomic.LoadInt64(&m.relayClientCount),
		RelayDropped:             atomic.LoadUint64(&m.relayDroppedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
