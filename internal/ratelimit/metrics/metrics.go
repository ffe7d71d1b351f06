package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the rate limiter.
type Metrics struct {
	// Checks by outcome: allowed, denied, error
	Checks *prometheus.CounterVec
}

// New creates a Metrics instance with all rate limiter metrics registered.
func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_ratelimit_checks_total",
			Help: "Total ingest rate limit checks, by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementCheck records one rate limit decision.
func (m *Metrics) IncrementCheck(outcome string) {
	if m != nil {
		m.Checks.WithLabelValues(outcome).Inc()
	}
}
