// Package metrics provides Prometheus metrics for the incentive engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the engine's Prometheus collectors.
type Manager struct {
	// Batch metrics
	batchRuns        prometheus.Counter
	driversProcessed prometheus.Counter
	driversFailed    prometheus.Counter
	batchDuration    prometheus.Histogram

	// Workflow metrics
	transitions *prometheus.CounterVec
	rollbacks   prometheus.Counter
}

// New registers the engine collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in the server, a fresh registry in tests.
func New(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)
	return &Manager{
		batchRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "incentive",
			Name:      "batch_runs_total",
			Help:      "Number of batch calculation runs.",
		}),
		driversProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "incentive",
			Name:      "batch_drivers_processed_total",
			Help:      "Active drivers considered across all batch runs.",
		}),
		driversFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "incentive",
			Name:      "batch_drivers_failed_total",
			Help:      "Per-driver failures recorded across all batch runs.",
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incentive",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of batch calculation runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incentive",
			Name:      "workflow_transitions_total",
			Help:      "Applied workflow status transitions.",
		}, []string{"from", "to"}),
		rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "incentive",
			Name:      "workflow_rollbacks_total",
			Help:      "Snapshot rollbacks applied.",
		}),
	}
}

func (m *Manager) BatchRun(processed, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.batchRuns.Inc()
	m.driversProcessed.Add(float64(processed))
	m.driversFailed.Add(float64(failed))
	m.batchDuration.Observe(seconds)
}

func (m *Manager) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Manager) Rollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}
