// Package jobmetrics holds the Prometheus collectors shared by background jobs.
package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drift    *prometheus.GaugeVec
	warmed   prometheus.Counter

	driftMu      sync.Mutex
	driftTenants map[string]struct{}
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

// End finalises the tracker, recording duration and success/failure counts,
// and returns the provided error untouched.
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

// SetDrift records how many stored running balances disagree with a replay
// of the tenant's cashflow ledger. Zero clears a previously reported drift.
func (m *Metrics) SetDrift(tenantID int64, mismatched int) {
	if m == nil {
		return
	}
	label := strconv.FormatInt(tenantID, 10)
	m.driftMu.Lock()
	defer m.driftMu.Unlock()
	m.setDriftLocked(label, mismatched)
}

// ReplaceDrift records a scan of every ledger. Tenants reported earlier but
// missing from counts no longer have a ledger to scan, so their series are
// removed.
func (m *Metrics) ReplaceDrift(counts map[int64]int) {
	if m == nil {
		return
	}
	current := make(map[string]int, len(counts))
	for tenantID, mismatched := range counts {
		current[strconv.FormatInt(tenantID, 10)] = mismatched
	}
	m.driftMu.Lock()
	defer m.driftMu.Unlock()
	for label := range m.driftTenants {
		if _, ok := current[label]; !ok {
			m.drift.DeleteLabelValues(label)
			delete(m.driftTenants, label)
		}
	}
	for label, mismatched := range current {
		m.setDriftLocked(label, mismatched)
	}
}

func (m *Metrics) setDriftLocked(label string, mismatched int) {
	if m.driftTenants == nil {
		m.driftTenants = make(map[string]struct{})
	}
	m.driftTenants[label] = struct{}{}
	m.drift.WithLabelValues(label).Set(float64(mismatched))
}

// AddWarmed counts aging reports primed into the cache.
func (m *Metrics) AddWarmed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.warmed.Add(float64(n))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	drift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backoffice_ledger_drift_entries",
		Help: "Cashflow entries whose stored running balance differs from a full replay.",
	}, []string{"tenant"})
	warmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_aging_reports_warmed_total",
		Help: "Aging reports primed into the cache by the warmup job.",
	})
	registerer.MustRegister(runs, failures, duration, drift, warmed)
	return &Metrics{runs: runs, failures: failures, duration: duration, drift: drift, warmed: warmed}
}
