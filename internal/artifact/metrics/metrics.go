// Package metrics exposes Prometheus metrics for artifact registration and
// duplicate detection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registered      prometheus.Counter
	Deleted         prometheus.Counter
	DuplicateGroups *prometheus.CounterVec
	ScanItems       prometheus.Histogram
}

// New registers artifact metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registered: factory.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_artifact_registered_total",
			Help: "Artifact descriptors registered.",
		}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_artifact_deleted_total",
			Help: "Artifact descriptors deleted.",
		}),
		DuplicateGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_artifact_duplicate_groups_total",
			Help: "Duplicate groups flagged, by classification.",
		}, []string{"kind"}),
		ScanItems: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_artifact_scan_items",
			Help:    "Descriptor count per duplicate scan.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementRegistered records one stored descriptor.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.Registered.Inc()
	}
}

// IncrementDeleted records one removed descriptor.
func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.Deleted.Inc()
	}
}

// IncrementDuplicateGroups records flagged groups for one classification.
func (m *Metrics) IncrementDuplicateGroups(kind string, n int) {
	if m != nil && n > 0 {
		m.DuplicateGroups.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveScanItems records how many descriptors one scan covered.
func (m *Metrics) ObserveScanItems(n int) {
	if m != nil {
		m.ScanItems.Observe(float64(n))
	}
}
