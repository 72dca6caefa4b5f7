package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for analysis runs.
//
// Exposed metrics (all namespaced "patchpilot"):
//   - runs_total{outcome}: completed runs by outcome
//     (approve, request_changes, block, timeout, error)
//   - node_latency_ms{node}: node execution latency histogram
//   - findings_total{role, severity}: findings produced per role
//   - short_circuits_total: runs that skipped enrichment on a critical finding
//   - timeouts_total: runs aborted by the deadline
//
// A nil *Metrics is valid and records nothing, so metrics stay optional.
type Metrics struct {
	runs          *prometheus.CounterVec
	nodeLatency   *prometheus.HistogramVec
	findings      *prometheus.CounterVec
	shortCircuits prometheus.Counter
	timeouts      prometheus.Counter
}

// NewMetrics creates and registers the workflow metrics with reg.
// Use prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchpilot",
			Name:      "runs_total",
			Help:      "Completed analysis runs by outcome.",
		}, []string{"outcome"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "patchpilot",
			Name:      "node_latency_ms",
			Help:      "Workflow node execution latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"node"}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patchpilot",
			Name:      "findings_total",
			Help:      "Findings produced, by analyzer role and severity.",
		}, []string{"role", "severity"}),
		shortCircuits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "patchpilot",
			Name:      "short_circuits_total",
			Help:      "Runs that skipped context enrichment on a critical finding.",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "patchpilot",
			Name:      "timeouts_total",
			Help:      "Runs aborted by the global deadline.",
		}),
	}
}

func (m *Metrics) recordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeNode(node NodeID, d time.Duration) {
	if m == nil {
		return
	}
	m.nodeLatency.WithLabelValues(string(node)).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) recordFinding(role, severity string) {
	if m == nil {
		return
	}
	m.findings.WithLabelValues(role, severity).Inc()
}

func (m *Metrics) recordShortCircuit() {
	if m == nil {
		return
	}
	m.shortCircuits.Inc()
}

func (m *Metrics) recordTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}
