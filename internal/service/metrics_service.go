package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	accidents       *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	pointsAwarded   *prometheus.CounterVec
	pointsDeducted  *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	accidents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accidents_reported_total",
		Help: "Accident reports accepted, by severity",
	}, []string{"severity"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accident_verifications_total",
		Help: "Verification decisions, by resulting status",
	}, []string{"status"})

	pointsAwarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "points_awarded_total",
		Help: "Points granted to users, by reason",
	}, []string{"reason"})

	pointsDeducted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "points_deducted_total",
		Help: "Points taken from users, by reason",
	}, []string{"reason"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification delivery attempts, by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, accidents, verifications, pointsAwarded, pointsDeducted, notifications, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		accidents:       accidents,
		verifications:   verifications,
		pointsAwarded:   pointsAwarded,
		pointsDeducted:  pointsDeducted,
		notifications:   notifications,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAccidentReported counts an accepted report.
func (m *MetricsService) ObserveAccidentReported(severity int) {
	if m == nil {
		return
	}
	m.accidents.WithLabelValues(strconv.Itoa(severity)).Inc()
}

// ObserveVerification counts a verification decision.
func (m *MetricsService) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status).Inc()
}

// ObservePointsAwarded adds delta to the granted or deducted counter.
func (m *MetricsService) ObservePointsAwarded(reason string, delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta > 0 {
		m.pointsAwarded.WithLabelValues(reason).Add(float64(delta))
		return
	}
	m.pointsDeducted.WithLabelValues(reason).Add(float64(-delta))
}

// ObserveNotification counts a delivery attempt outcome ("sent" or "failed").
func (m *MetricsService) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
