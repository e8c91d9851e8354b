package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/BnB-Initivatives/stox-prod-test/internal/jobs"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	txTotal         *prometheus.CounterVec
	txDuration      *prometheus.HistogramVec
	unitsMoved      *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, inventory and job collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stox_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stox_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	txTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stox_inventory_transactions_total",
		Help: "Checkout and receipt requests by outcome.",
	}, []string{"kind", "outcome"})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stox_inventory_transaction_duration_seconds",
		Help:    "Time spent processing checkout and receipt requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stox_inventory_units_moved_total",
		Help: "Stock units moved in or out of inventory.",
	}, []string{"direction"})
	registry.MustRegister(requests, duration, txTotal, txDuration, units)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		txTotal:         txTotal,
		txDuration:      txDuration,
		unitsMoved:      units,
		jobs:            jobmetrics.NewMetrics(registry),
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

// Middleware records metrics for every HTTP request.
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

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs returns the background job collectors registered on this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// IncTransaction counts a processed checkout or receipt.
func (m *Metrics) IncTransaction(kind, outcome string) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveDuration records how long a checkout or receipt took.
func (m *Metrics) ObserveDuration(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AddUnits counts stock units moved; direction is "in" or "out".
func (m *Metrics) AddUnits(direction string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.unitsMoved.WithLabelValues(direction).Add(float64(units))
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
