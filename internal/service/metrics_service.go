package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the calendar aggregation core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	syncTotal      *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	mergedEvents   prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_hits_total",
		Help: "Total calendar cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_misses_total",
		Help: "Total calendar cache misses",
	})

	syncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_syncs_total",
		Help: "Total calendar sync runs by outcome",
	}, []string{"outcome"})

	sourceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_source_failures_total",
		Help: "Total per-source fetch failures",
	}, []string{"source"})

	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_sync_duration_seconds",
		Help:    "Duration of full calendar sync runs",
		Buckets: prometheus.DefBuckets,
	})

	mergedEvents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calendar_merged_events",
		Help: "Events currently held in the merged collection",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		syncTotal, sourceFailures, syncDuration, mergedEvents, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		syncTotal:       syncTotal,
		sourceFailures:  sourceFailures,
		syncDuration:    syncDuration,
		mergedEvents:    mergedEvents,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheLookup counts a calendar cache hit or miss.
func (s *MetricsService) RecordCacheLookup(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}

// RecordSync captures the outcome of one sync run.
func (s *MetricsService) RecordSync(success bool, duration time.Duration, merged int) {
	if s == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	s.syncTotal.WithLabelValues(outcome).Inc()
	s.syncDuration.Observe(duration.Seconds())
	s.mergedEvents.Set(float64(merged))
}

// RecordSourceFailure counts a per-source fetch failure.
func (s *MetricsService) RecordSourceFailure(sourceName string) {
	if s == nil {
		return
	}
	s.sourceFailures.WithLabelValues(sourceName).Inc()
}
