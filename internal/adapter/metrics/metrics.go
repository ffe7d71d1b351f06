package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the adapter module.
type Metrics struct {
	// New client registrations
	Registered prometheus.Counter

	// Key rotations
	Rotated prometheus.Counter

	// Key verification attempts by outcome: ok, malformed, unknown,
	// inactive, mismatch, error
	Verifications *prometheus.CounterVec
}

// New creates a Metrics instance with all adapter module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_adapter_registered_total",
			Help: "Total adapter clients registered",
		}),

		Rotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travelcheck_adapter_key_rotations_total",
			Help: "Total adapter API key rotations",
		}),

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcheck_adapter_key_verifications_total",
			Help: "Total adapter API key verification attempts, by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementRegistered records a client registration.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.Registered.Inc()
	}
}

// IncrementRotated records a key rotation.
func (m *Metrics) IncrementRotated() {
	if m != nil {
		m.Rotated.Inc()
	}
}

// IncrementVerification records one verification attempt.
func (m *Metrics) IncrementVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}
