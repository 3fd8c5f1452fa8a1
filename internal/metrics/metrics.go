// Package metrics exposes Prometheus counters for scan activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arrwatch"

// Scan outcomes.
const (
	OutcomeOK         = "ok"
	OutcomePartial    = "partial"
	OutcomeError      = "error"
	OutcomeInProgress = "in_progress"
)

// Metrics holds the collectors of one daemon. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scans     *prometheus.CounterVec
	episodes  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  prometheus.Histogram
	lastCycle prometheus.Gauge
}

// New creates a registry with the Go and process collectors plus the scan
// metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Series scans by outcome.",
		}, []string{"outcome"}),
		episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "episodes_total",
			Help:      "Episodes processed by action.",
		}, []string{"action"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "failures_total",
			Help:      "Per-episode failures by stage.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of a single series scan.",
			Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 1800, 7200, 43200},
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last full scan cycle finished.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.scans, m.episodes, m.failures, m.duration, m.lastCycle,
	)
	return m
}

// ScanFinished records one series scan.
func (m *Metrics) ScanFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

// Episode records one episode handled with action.
func (m *Metrics) Episode(action string) {
	if m == nil {
		return
	}
	m.episodes.WithLabelValues(action).Inc()
}

// Failure records one per-episode failure at stage.
func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

// CycleFinished records the end of a ScanAll cycle.
func (m *Metrics) CycleFinished(t time.Time) {
	if m == nil {
		return
	}
	m.lastCycle.Set(float64(t.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
