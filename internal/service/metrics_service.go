package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling engine.
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
	gateDecisions   *prometheus.CounterVec
	conflictsFound  prometheus.Counter
	catalogSlots    prometheus.Gauge
	closeGrades     *prometheus.CounterVec
	closeRuns       *prometheus.CounterVec
	closeDuration   prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	gateDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_gate_decisions_total",
		Help: "Enrollment and teaching assignment decisions by outcome code",
	}, []string{"operation", "outcome"})

	conflictsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_conflicts_detected_total",
		Help: "Meeting overlaps reported by the conflict detector",
	})

	catalogSlots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timegrid_catalog_slots",
		Help: "Number of slots in the active catalog",
	})

	closeGrades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semester_close_grades_total",
		Help: "Assignments processed by semester close, by outcome",
	}, []string{"outcome"})

	closeRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semester_close_runs_total",
		Help: "Semester close runs by terminal status",
	}, []string{"status"})

	closeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "semester_close_duration_seconds",
		Help:    "Wall time of a semester close",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		gateDecisions, conflictsFound, catalogSlots, closeGrades, closeRuns, closeDuration, goroutines)

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
		gateDecisions:   gateDecisions,
		conflictsFound:  conflictsFound,
		catalogSlots:    catalogSlots,
		closeGrades:     closeGrades,
		closeRuns:       closeRuns,
		closeDuration:   closeDuration,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

// RecordGateDecision counts one gate outcome; outcome is "OK" or an error code.
func (m *MetricsService) RecordGateDecision(operation, outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(operation, outcome).Inc()
}

// RecordConflicts adds n detected overlaps.
func (m *MetricsService) RecordConflicts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.conflictsFound.Add(float64(n))
}

// SetCatalogSize publishes the active catalog size.
func (m *MetricsService) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogSlots.Set(float64(n))
}

// RecordCloseOutcome counts one processed assignment.
func (m *MetricsService) RecordCloseOutcome(outcome string) {
	if m == nil {
		return
	}
	m.closeGrades.WithLabelValues(outcome).Inc()
}

// ObserveCloseRun records how a close finished and how long it took.
func (m *MetricsService) ObserveCloseRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.closeRuns.WithLabelValues(status).Inc()
	m.closeDuration.Observe(duration.Seconds())
}
