package presence_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	evidencestore "github.com/eshbtc/travelcheck-sub000/internal/evidence/store"
	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// =============================================================================
// Presence Service Test Suite
// =============================================================================
// Justification for unit tests: the service stitches the evidence store, the
// reconciler, the analyzer and the snapshot cache together; the interesting
// behavior is what gets cached, what gets filtered and how errors surface.
// The reconciliation math itself is covered by the reconciler suite.

type PresenceServiceSuite struct {
	suite.Suite
	store     *evidencestore.InMemory
	source    *countingSource
	snapshots *fakeSnapshots
	service   *presence.Service
	userID    id.UserID
}

func TestPresenceServiceSuite(t *testing.T) {
	suite.Run(t, new(PresenceServiceSuite))
}

func (s *PresenceServiceSuite) SetupTest() {
	s.store = evidencestore.NewInMemory()
	s.source = &countingSource{inner: s.store}
	s.snapshots = newFakeSnapshots()
	s.userID = id.NewUserID()
	s.service = presence.New(s.source, presence.WithSnapshots(s.snapshots))
}

func (s *PresenceServiceSuite) insert(kind id.SourceKind, date, country string, confidence float64) evidence.EvidenceRecord {
	day, err := time.Parse("2006-01-02", date)
	s.Require().NoError(err)
	rec := evidence.EvidenceRecord{
		ID:         id.NewEvidenceID(),
		UserID:     s.userID,
		SourceKind: kind,
		Date:       day.UTC(),
		Country:    country,
		Confidence: confidence,
		IngestedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Insert(context.Background(), []evidence.EvidenceRecord{rec}))
	return rec
}

func (s *PresenceServiceSuite) date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	s.Require().NoError(err)
	return t.UTC()
}

// =============================================================================
// Calendar Tests
// =============================================================================

func (s *PresenceServiceSuite) TestCalendar() {
	ctx := context.Background()

	s.Run("reconciles stored evidence", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "FR", 0.9)
		s.insert(id.SourceEmailBooking, "2024-03-01", "FR", 0.8)

		days, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, nil)

		s.Require().NoError(err)
		s.Require().Len(days, 1)
		s.Equal("FR", days[0].Country)
		s.InDelta(0.98, days[0].Confidence, 1e-9)
		s.Equal(presence.AttributionMerged, days[0].Attribution)
	})

	s.Run("requires a user", func() {
		s.SetupTest()
		_, err := s.service.Calendar(ctx, id.UserID{}, time.Time{}, time.Time{}, nil)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects an inverted range", func() {
		s.SetupTest()
		_, err := s.service.Calendar(ctx, s.userID, s.date("2024-02-01"), s.date("2024-01-01"), nil)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("bounds the range", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-01-15", "FR", 0.85)
		s.insert(id.SourcePassportStamp, "2024-02-15", "DE", 0.85)
		s.insert(id.SourcePassportStamp, "2024-03-15", "US", 0.85)

		days, err := s.service.Calendar(ctx, s.userID, s.date("2024-02-01"), s.date("2024-02-28"), nil)

		s.Require().NoError(err)
		s.Require().Len(days, 1)
		s.Equal("DE", days[0].Country)
	})

	s.Run("filters countries case-insensitively", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "FR", 0.85)
		s.insert(id.SourcePassportStamp, "2024-03-02", "DE", 0.85)

		days, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, []string{" de "})

		s.Require().NoError(err)
		s.Require().Len(days, 1)
		s.Equal("DE", days[0].Country)
	})

	s.Run("surfaces corrupted evidence as a contract violation", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "", 0.85)

		_, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, nil)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeContractViolation))
	})
}

// =============================================================================
// Snapshot Cache Tests
// =============================================================================

func (s *PresenceServiceSuite) TestSnapshots() {
	ctx := context.Background()

	s.Run("second read is served from the snapshot", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "FR", 0.85)

		_, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, nil)
		s.Require().NoError(err)
		s.Equal(1, s.source.count())
		s.Equal(1, s.snapshots.puts())

		days, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, nil)
		s.Require().NoError(err)
		s.Require().Len(days, 1)
		s.Equal(1, s.source.count(), "cached read must not hit the evidence store")
		s.Equal(1, s.snapshots.puts())
	})

	s.Run("country filter applies after the cache", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "FR", 0.85)
		s.insert(id.SourcePassportStamp, "2024-03-02", "DE", 0.85)

		days, err := s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, []string{"FR"})
		s.Require().NoError(err)
		s.Require().Len(days, 1)

		cached, ok := s.snapshots.Get(ctx, s.userID, time.Time{}, time.Time{})
		s.Require().True(ok)
		s.Len(cached, 2, "snapshot holds the unfiltered calendar")
	})

	s.Run("distinct ranges cache separately", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-03-01", "FR", 0.85)

		_, err := s.service.Calendar(ctx, s.userID, s.date("2024-03-01"), s.date("2024-03-31"), nil)
		s.Require().NoError(err)
		_, err = s.service.Calendar(ctx, s.userID, time.Time{}, time.Time{}, nil)
		s.Require().NoError(err)

		s.Equal(2, s.source.count())
		s.Equal(2, s.snapshots.puts())
	})
}

// =============================================================================
// Insights and Summary Tests
// =============================================================================

func (s *PresenceServiceSuite) TestInsights() {
	ctx := context.Background()

	s.Run("reports gaps and conflicts together", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-01-01", "FR", 0.9)
		s.insert(id.SourceEmailBooking, "2024-01-01", "US", 0.8)
		s.insert(id.SourcePassportStamp, "2024-01-08", "FR", 0.9)

		insights, err := s.service.Insights(ctx, s.userID, s.date("2024-01-01"), s.date("2024-01-08"))

		s.Require().NoError(err)
		s.Require().Len(insights.Conflicts, 1)
		s.Equal("FR", insights.Conflicts[0].CompetingCountries[0].Country)
		s.Require().Len(insights.Gaps, 1)
		s.Equal(6, insights.Gaps[0].LengthDays)
		s.Require().Len(insights.Recommendations, 2)
		s.Equal(presence.RecommendUploadEvidence, insights.Recommendations[0].Kind)
	})

	s.Run("propagates user validation", func() {
		s.SetupTest()
		_, err := s.service.Insights(ctx, id.UserID{}, time.Time{}, time.Time{})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PresenceServiceSuite) TestSummary() {
	ctx := context.Background()

	s.Run("counts days, countries and sources", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-01-01", "FR", 0.9)
		s.insert(id.SourceEmailBooking, "2024-01-01", "FR", 0.8)
		s.insert(id.SourcePassportStamp, "2024-01-02", "FR", 0.85)
		s.insert(id.SourcePassportStamp, "2024-01-03", "DE", 0.85)

		summary, err := s.service.Summary(ctx, s.userID, s.date("2024-01-01"), s.date("2024-01-03"))

		s.Require().NoError(err)
		s.Equal(3, summary.TotalDays)
		s.Equal(2, summary.UniqueCountries)
		s.Equal(map[string]int{"FR": 2, "DE": 1}, summary.CountryDays)
		s.Equal(map[string]int{presence.AttributionMerged: 1, "passport_stamp": 2}, summary.SourceBreakdown)
		s.Equal(0, summary.ConflictCount)
		s.Equal(0, summary.GapCount)
		s.Require().NotNil(summary.RangeStart)
		s.Equal(s.date("2024-01-01"), *summary.RangeStart)
		s.Require().NotNil(summary.RangeEnd)
		s.Equal(s.date("2024-01-03"), *summary.RangeEnd)
	})

	s.Run("counts conflicts and gaps", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-01-01", "FR", 0.9)
		s.insert(id.SourceEmailBooking, "2024-01-01", "US", 0.8)
		s.insert(id.SourcePassportStamp, "2024-01-05", "FR", 0.9)

		summary, err := s.service.Summary(ctx, s.userID, s.date("2024-01-01"), s.date("2024-01-05"))

		s.Require().NoError(err)
		s.Equal(2, summary.TotalDays)
		s.Equal(1, summary.ConflictCount)
		s.Equal(1, summary.GapCount)
	})

	s.Run("omits range bounds when open", func() {
		s.SetupTest()
		s.insert(id.SourcePassportStamp, "2024-01-01", "FR", 0.9)

		summary, err := s.service.Summary(ctx, s.userID, time.Time{}, time.Time{})

		s.Require().NoError(err)
		s.Nil(summary.RangeStart)
		s.Nil(summary.RangeEnd)
	})
}

// =============================================================================
// Test Doubles
// =============================================================================

// countingSource counts reads so cache tests can prove the store was skipped.
type countingSource struct {
	mu    sync.Mutex
	inner *evidencestore.InMemory
	calls int
}

func (c *countingSource) ListForRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]evidence.EvidenceRecord, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.ListForRange(ctx, userID, from, to)
}

func (c *countingSource) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeSnapshots is an in-process stand-in for the Redis snapshot cache.
type fakeSnapshots struct {
	mu      sync.Mutex
	entries map[string][]presence.PresenceDay
	stored  int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{entries: make(map[string][]presence.PresenceDay)}
}

func (f *fakeSnapshots) key(userID id.UserID, from, to time.Time) string {
	return userID.String() + "|" + from.Format(time.RFC3339) + "|" + to.Format(time.RFC3339)
}

func (f *fakeSnapshots) Get(_ context.Context, userID id.UserID, from, to time.Time) ([]presence.PresenceDay, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	days, ok := f.entries[f.key(userID, from, to)]
	return days, ok
}

func (f *fakeSnapshots) Put(_ context.Context, userID id.UserID, from, to time.Time, days []presence.PresenceDay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[f.key(userID, from, to)] = days
	f.stored++
}

func (f *fakeSnapshots) puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored
}
