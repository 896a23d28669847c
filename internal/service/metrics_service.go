package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the snapshot cache and lifecycle outcomes.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	registrations      *prometheus.CounterVec
	cancellations      prometheus.Counter
	promotions         *prometheus.CounterVec
	checkIns           *prometheus.CounterVec
	pointsAwarded      prometheus.Counter
	settlementsSkipped prometheus.Counter
	deliveryFailures   *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_registrations_total",
			Help: "Registrations by admission outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lifecycle_cancellations_total",
			Help: "Cancelled registrations",
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_promotions_total",
			Help: "Waitlist promotions by trigger",
		}, []string{"trigger"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_checkins_total",
			Help: "Check-in attempts by result code",
		}, []string{"result"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lifecycle_points_awarded_total",
			Help: "Points credited through settlement",
		}),
		settlementsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lifecycle_settlements_skipped_total",
			Help: "Settlements skipped because the registration was already completed",
		}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_delivery_failures_total",
			Help: "Notifications and domain events dropped after retries",
		}, []string{"sink"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheHits, m.cacheMisses,
		m.registrations, m.cancellations, m.promotions, m.checkIns,
		m.pointsAwarded, m.settlementsSkipped, m.deliveryFailures,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordRegistration counts an admission decision.
func (m *MetricsService) RecordRegistration(waitlisted bool) {
	if m == nil {
		return
	}
	outcome := "registered"
	if waitlisted {
		outcome = "waitlisted"
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// RecordCancellation counts a cancelled registration.
func (m *MetricsService) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordPromotions counts promoted registrations.
func (m *MetricsService) RecordPromotions(trigger string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.promotions.WithLabelValues(trigger).Add(float64(n))
}

// RecordCheckIn counts a check-in attempt by result code.
func (m *MetricsService) RecordCheckIn(result string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(result).Inc()
}

// RecordSettlement counts credited points or a skipped settlement.
func (m *MetricsService) RecordSettlement(points int, settled bool) {
	if m == nil {
		return
	}
	if !settled {
		m.settlementsSkipped.Inc()
		return
	}
	m.pointsAwarded.Add(float64(points))
}

// RecordDeliveryFailure counts a dropped event delivery.
func (m *MetricsService) RecordDeliveryFailure(sink string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(sink).Inc()
}
