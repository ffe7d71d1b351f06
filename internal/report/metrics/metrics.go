// Package metrics exposes Prometheus metrics for report generation and export.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Generated           *prometheus.CounterVec
	ComposeDuration     prometheus.Histogram
	ExportDownloads     *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
}

// New registers report metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Generated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_reports_generated_total",
			Help: "Reports generated, by report type.",
		}, []string{"report_type"}),
		ComposeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_reports_compose_duration_seconds",
			Help:    "Time spent fetching, reconciling and composing one report.",
			Buckets: prometheus.DefBuckets,
		}),
		ExportDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_reports_export_downloads_total",
			Help: "Report exports served, by format.",
		}, []string{"format"}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_reports_persistence_failures_total",
			Help: "Composed reports that could not be saved and were returned with a warning.",
		}),
	}
}

// ObserveGenerate records one successful generation.
func (m *Metrics) ObserveGenerate(reportType string, d time.Duration) {
	if m == nil {
		return
	}
	m.Generated.WithLabelValues(reportType).Inc()
	m.ComposeDuration.Observe(d.Seconds())
}

// IncrementExport records one export download by format.
func (m *Metrics) IncrementExport(format string) {
	if m != nil {
		m.ExportDownloads.WithLabelValues(format).Inc()
	}
}

// IncrementPersistenceFailure records a report save that failed after
// composition succeeded.
func (m *Metrics) IncrementPersistenceFailure() {
	if m != nil {
		m.PersistenceFailures.Inc()
	}
}
