// Package metrics exposes Prometheus metrics for presence reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ReconcileDuration prometheus.Histogram
	ReconciledDays    prometheus.Histogram
	ConflictDays      prometheus.Counter
	SnapshotLookups   *prometheus.CounterVec
}

// New registers presence metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_presence_reconcile_duration_seconds",
			Help:    "Time spent reconciling one user's evidence into a calendar.",
			Buckets: prometheus.DefBuckets,
		}),
		ReconciledDays: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_presence_reconciled_days",
			Help:    "Calendar size per reconciliation.",
			Buckets: []float64{1, 7, 30, 90, 180, 365, 1000},
		}),
		ConflictDays: factory.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_presence_conflict_days_total",
			Help: "Reconciled days that carried a conflict note.",
		}),
		SnapshotLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_presence_snapshot_lookups_total",
			Help: "Snapshot cache lookups, by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveReconcile records one reconciliation run.
func (m *Metrics) ObserveReconcile(d time.Duration, days, conflicts int) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Observe(d.Seconds())
	m.ReconciledDays.Observe(float64(days))
	if conflicts > 0 {
		m.ConflictDays.Add(float64(conflicts))
	}
}

// IncrementSnapshotLookup records one cache lookup outcome ("hit" or "miss").
func (m *Metrics) IncrementSnapshotLookup(outcome string) {
	if m != nil {
		m.SnapshotLookups.WithLabelValues(outcome).Inc()
	}
}
