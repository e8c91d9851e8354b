package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lowStock    prometheus.Gauge
	alertsTotal prometheus.Counter
	keysPurged  prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetLowStockItems records how many items the last scan found below threshold.
func (m *Metrics) SetLowStockItems(count int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

// AddLowStockAlerts counts items reported by low-stock alerts.
func (m *Metrics) AddLowStockAlerts(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alertsTotal.Add(float64(count))
}

// AddIdempotencyKeysPurged counts idempotency keys removed by cleanup.
func (m *Metrics) AddIdempotencyKeysPurged(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.keysPurged.Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stox_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stox_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stox_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stox_low_stock_items",
		Help: "Items below their low stock threshold at the last scan.",
	})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stox_low_stock_alerts_total",
		Help: "Items reported by low stock alerts.",
	})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stox_idempotency_keys_purged_total",
		Help: "Idempotency keys removed by the cleanup task.",
	})
	registerer.MustRegister(runs, failures, duration, lowStock, alerts, purged)
	return &Metrics{runs: runs, failures: failures, duration: duration, lowStock: lowStock, alertsTotal: alerts, keysPurged: purged}
}
