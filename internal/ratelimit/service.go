package ratelimit

import (
	"context"
	"log/slog"
	"time"

	ratelimitmetrics "github.com/eshbtc/travelcheck-sub000/internal/ratelimit/metrics"
)

const (
	defaultPerWindow = 120
	defaultBurst     = 20
	defaultWindow    = time.Minute
)

// CounterStore tracks request counts per key within a window. Implementations
// decide the algorithm; the service only interprets the result.
type CounterStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Service applies the ingest rate limit. Store failures fail open: losing
// the limiter must not take ingest down with it.
type Service struct {
	store     CounterStore
	logger    *slog.Logger
	metrics   *ratelimitmetrics.Metrics
	perWindow int
	burst     int
	window    time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *ratelimitmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLimit sets the sustained request budget per window.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.perWindow = n
		}
	}
}

// WithBurst sets the extra headroom tolerated above the sustained budget.
func WithBurst(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.burst = n
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewService constructs a Service.
func NewService(store CounterStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		perWindow: defaultPerWindow,
		burst:     defaultBurst,
		window:    defaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIngest decides whether the principal may submit another batch now.
// The advertised limit is the sustained budget; the store ceiling includes
// burst headroom so short spikes pass.
func (s *Service) CheckIngest(ctx context.Context, principal string) *Result {
	ceiling := s.perWindow + s.burst
	result, err := s.store.Allow(ctx, "ingest:"+principal, ceiling, s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
				"principal", principal,
				"error", err,
			)
		}
		s.metrics.IncrementCheck("error")
		return &Result{Allowed: true, Limit: s.perWindow, Remaining: s.perWindow}
	}

	result.Limit = s.perWindow
	if result.Remaining > s.perWindow {
		result.Remaining = s.perWindow
	}
	if result.Allowed {
		s.metrics.IncrementCheck("allowed")
	} else {
		s.metrics.IncrementCheck("denied")
	}
	return result
}
