package presence

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	"github.com/eshbtc/travelcheck-sub000/internal/presence/metrics"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// EvidenceSource supplies the reconciliation input set. The evidence service
// satisfies this.
type EvidenceSource interface {
	ListForRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]evidence.EvidenceRecord, error)
}

// Snapshots caches reconciled calendars keyed by user and range.
type Snapshots interface {
	Get(ctx context.Context, userID id.UserID, from, to time.Time) ([]PresenceDay, bool)
	Put(ctx context.Context, userID id.UserID, from, to time.Time, days []PresenceDay)
}

// Service answers calendar, insight and summary queries. It owns no storage:
// evidence is read through EvidenceSource and reconciled on demand, with an
// optional snapshot cache in front.
type Service struct {
	source     EvidenceSource
	reconciler *Reconciler
	analyzer   *Analyzer
	snapshots  Snapshots
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSnapshots installs a calendar cache. Without one every query
// reconciles from scratch.
func WithSnapshots(snapshots Snapshots) Option {
	return func(s *Service) { s.snapshots = snapshots }
}

// WithAnalyzer replaces the default analyzer, typically to tune the gap
// alert threshold from configuration.
func WithAnalyzer(a *Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

func New(source EvidenceSource, opts ...Option) *Service {
	s := &Service{
		source:     source,
		reconciler: NewReconciler(),
		analyzer:   NewAnalyzer(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calendar returns the reconciled presence days for the range, oldest first.
// A non-empty countries filter keeps only days won by one of the listed
// countries; filtering happens after reconciliation so it never changes who
// wins a day.
func (s *Service) Calendar(ctx context.Context, userID id.UserID, from, to time.Time, countries []string) ([]PresenceDay, error) {
	days, err := s.calendar(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return filterCountries(days, countries), nil
}

// Insights returns the gaps, conflicts and recommendations for the range.
func (s *Service) Insights(ctx context.Context, userID id.UserID, from, to time.Time) (Insights, error) {
	days, err := s.calendar(ctx, userID, from, to)
	if err != nil {
		return Insights{}, err
	}
	return s.analyzer.Analyze(days, from, to), nil
}

// Summary condenses the range into headline numbers.
func (s *Service) Summary(ctx context.Context, userID id.UserID, from, to time.Time) (Summary, error) {
	days, err := s.calendar(ctx, userID, from, to)
	if err != nil {
		return Summary{}, err
	}
	insights := s.analyzer.Analyze(days, from, to)

	summary := Summary{
		TotalDays:       len(days),
		CountryDays:     make(map[string]int),
		SourceBreakdown: make(map[string]int),
		ConflictCount:   len(insights.Conflicts),
		GapCount:        len(insights.Gaps),
	}
	if !from.IsZero() {
		f := midnight(from)
		summary.RangeStart = &f
	}
	if !to.IsZero() {
		t := midnight(to)
		summary.RangeEnd = &t
	}
	for _, d := range days {
		summary.CountryDays[d.Country]++
		summary.SourceBreakdown[d.Attribution]++
	}
	summary.UniqueCountries = len(summary.CountryDays)
	return summary, nil
}

func (s *Service) calendar(ctx context.Context, userID id.UserID, from, to time.Time) ([]PresenceDay, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, dErrors.NewWithFields(dErrors.CodeValidation, "range end precedes range start", []string{"from", "to"})
	}

	if s.snapshots != nil {
		if days, ok := s.snapshots.Get(ctx, userID, from, to); ok {
			s.metrics.IncrementSnapshotLookup("hit")
			return days, nil
		}
		s.metrics.IncrementSnapshotLookup("miss")
	}

	records, err := s.source.ListForRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	days, err := s.reconciler.Reconcile(records)
	if err != nil {
		s.logger.ErrorContext(ctx, "presence reconciliation aborted",
			"user_id", userID,
			"error", err,
		)
		return nil, err
	}
	conflicts := 0
	for _, d := range days {
		conflicts += len(d.Conflicts)
	}
	s.metrics.ObserveReconcile(time.Since(started), len(days), conflicts)
	s.logger.DebugContext(ctx, "reconciled presence calendar",
		"user_id", userID,
		"records", len(records),
		"days", len(days),
		"conflict_days", conflicts,
	)

	if s.snapshots != nil {
		s.snapshots.Put(ctx, userID, from, to, days)
	}
	return days, nil
}

func filterCountries(days []PresenceDay, countries []string) []PresenceDay {
	if len(countries) == 0 {
		return days
	}
	wanted := make(map[string]bool, len(countries))
	for _, c := range countries {
		wanted[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	filtered := make([]PresenceDay, 0, len(days))
	for _, d := range days {
		if wanted[strings.ToUpper(d.Country)] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
