package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evidence module.
type Metrics struct {
	// Accepted records by source kind
	RecordsIngested *prometheus.CounterVec

	// Rejected records by failing field
	RecordsRejected *prometheus.CounterVec

	// Batch sizes as submitted by adapters
	BatchSize prometheus.Histogram

	// End-to-end ingest latency including persistence
	IngestLatency prometheus.Histogram
}

// New creates a Metrics instance with all evidence module metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_evidence_records_ingested_total",
			Help: "Total evidence records accepted, by source kind",
		}, []string{"source_kind"}),

		RecordsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_evidence_records_rejected_total",
			Help: "Total evidence records rejected during normalization, by failing field",
		}, []string{"field"}),

		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_evidence_batch_size",
			Help:    "Number of records per submitted ingest batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		IngestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelcheck_evidence_ingest_duration_seconds",
			Help:    "Duration of ingest including normalization and persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementIngested records accepted records for one source kind.
func (m *Metrics) IncrementIngested(sourceKind string, n int) {
	if m != nil {
		m.RecordsIngested.WithLabelValues(sourceKind).Add(float64(n))
	}
}

// IncrementRejected records a normalization rejection.
func (m *Metrics) IncrementRejected(field string) {
	if m != nil {
		m.RecordsRejected.WithLabelValues(field).Inc()
	}
}

// ObserveBatchSize records the size of a submitted batch.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}

// ObserveIngestLatency records the total ingest duration.
func (m *Metrics) ObserveIngestLatency(d time.Duration) {
	if m != nil {
		m.IngestLatency.Observe(d.Seconds())
	}
}
