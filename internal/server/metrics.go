package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks detection activity for the /metrics endpoint.
type Metrics struct {
	registry    *prometheus.Registry
	runs        prometheus.Counter
	cyclesFound prometheus.Counter
	groupsFound prometheus.Counter
	runDuration prometheus.Histogram
}

// NewMetrics builds and registers the detection metric set on a private
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amlscan",
			Name:      "detection_runs_total",
			Help:      "Number of completed detection runs.",
		}),
		cyclesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amlscan",
			Name:      "cycles_found_total",
			Help:      "Number of qualifying cycles reported across runs.",
		}),
		groupsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amlscan",
			Name:      "structuring_groups_found_total",
			Help:      "Number of structuring groups reported across runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amlscan",
			Name:      "detection_run_duration_seconds",
			Help:      "Wall-clock duration of detection runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	registry.MustRegister(m.runs, m.cyclesFound, m.groupsFound, m.runDuration)
	return m
}

// ObserveRun records the outcome of one detection run.
func (m *Metrics) ObserveRun(duration time.Duration, cycles, groups int) {
	m.runs.Inc()
	m.cyclesFound.Add(float64(cycles))
	m.groupsFound.Add(float64(groups))
	m.runDuration.Observe(duration.Seconds())
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
