// Package observability owns the process-wide Prometheus registry and the
// structured logger setup.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "famtree"

// Metrics records remote calls, autosave runs and tree size. It satisfies
// both remote.MetricsRecorder and persist.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	autosave *prometheus.CounterVec
	nodes    prometheus.Gauge
}

// NewMetrics registers the famtree collectors on a fresh registry. Go
// runtime and process collectors are included when withRuntime is set.
func NewMetrics(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Remote API calls by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Remote API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		autosave: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_runs_total",
			Help:      "Autosave runs by result.",
		}, []string{"result"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tree_nodes",
			Help:      "Nodes in the tree being edited.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.autosave, m.nodes)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Observe records one remote call.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// AutosaveRun counts one autosave outcome.
func (m *Metrics) AutosaveRun(result string) {
	m.autosave.WithLabelValues(result).Inc()
}

// TreeSize sets the current node count.
func (m *Metrics) TreeSize(nodes int) {
	m.nodes.Set(float64(nodes))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
