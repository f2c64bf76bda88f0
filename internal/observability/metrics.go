package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	leadEvents      *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	scopedQueries   *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaddesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	leadEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddesk_lead_events_total",
		Help: "Lead mutations by action and resulting status.",
	}, []string{"action", "status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddesk_notifications_total",
		Help: "Push notifications by kind and enqueue outcome.",
	}, []string{"kind", "outcome"})
	scoped := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaddesk_scoped_query_duration_seconds",
		Help:    "Duration of role-scoped lead query batches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"designation"})
	registry.MustRegister(requests, duration, leadEvents, notifications, scoped)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		leadEvents:      leadEvents,
		notifications:   notifications,
		scopedQueries:   scoped,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// LeadEvent counts a lead mutation.
func (m *Metrics) LeadEvent(action, status string) {
	if m == nil {
		return
	}
	m.leadEvents.WithLabelValues(action, status).Inc()
}

// Notification counts an enqueue attempt.
func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "enqueued"
	if err != nil {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

// ObserveScopedQuery records the duration of a fan-out batch.
func (m *Metrics) ObserveScopedQuery(designation string, d time.Duration) {
	if m == nil {
		return
	}
	m.scopedQueries.WithLabelValues(designation).Observe(d.Seconds())
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
