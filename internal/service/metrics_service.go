package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	searchTotal     prometheus.Counter
	uploadTotal     prometheus.Counter
	downloadTotal   prometheus.Counter
	intakeTotal     *prometheus.CounterVec
	securityEvents  *prometheus.CounterVec
	snapshotHits    prometheus.Counter
	snapshotMisses  prometheus.Counter
}

// NewMetricsService registers the portal's Prometheus collectors.
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

	searchTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_searches_total",
		Help: "Total catalog search queries served",
	})

	uploadTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_uploads_total",
		Help: "Total successful document uploads",
	})

	downloadTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_downloads_total",
		Help: "Total document downloads served",
	})

	intakeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "material_requests_total",
		Help: "Material request submissions by outcome",
	}, []string{"outcome"})

	securityEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "security_events_total",
		Help: "Security events by kind",
	}, []string{"kind"})

	snapshotHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_snapshot_hits_total",
		Help: "Catalog snapshot cache hits",
	})

	snapshotMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_snapshot_misses_total",
		Help: "Catalog snapshot cache misses",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		searchTotal,
		uploadTotal,
		downloadTotal,
		intakeTotal,
		securityEvents,
		snapshotHits,
		snapshotMisses,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		searchTotal:     searchTotal,
		uploadTotal:     uploadTotal,
		downloadTotal:   downloadTotal,
		intakeTotal:     intakeTotal,
		securityEvents:  securityEvents,
		snapshotHits:    snapshotHits,
		snapshotMisses:  snapshotMisses,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncSearch counts one catalog search.
func (s *MetricsService) IncSearch() {
	s.searchTotal.Inc()
}

// IncUpload counts one successful upload.
func (s *MetricsService) IncUpload() {
	s.uploadTotal.Inc()
}

// IncDownload counts one served download.
func (s *MetricsService) IncDownload() {
	s.downloadTotal.Inc()
}

// IncIntake counts an intake submission by outcome (accepted, rejected,
// rate_limited, duplicate).
func (s *MetricsService) IncIntake(outcome string) {
	s.intakeTotal.WithLabelValues(outcome).Inc()
}

// IncSecurityEvent counts a security event by kind. Satisfies the security
// tracker's observer hook.
func (s *MetricsService) IncSecurityEvent(kind string) {
	s.securityEvents.WithLabelValues(kind).Inc()
}

// RecordSnapshotLookup counts a snapshot cache hit or miss.
func (s *MetricsService) RecordSnapshotLookup(hit bool) {
	if hit {
		s.snapshotHits.Inc()
		return
	}
	s.snapshotMisses.Inc()
}
