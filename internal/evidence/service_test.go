package evidence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	evidencestore "github.com/eshbtc/travelcheck-sub000/internal/evidence/store"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	auditmemory "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/store/memory"
)

// =============================================================================
// Evidence Service Test Suite
// =============================================================================
// Justification for unit tests: ingest couples normalization, persistence,
// audit emission and snapshot invalidation; the confirm/dispute lifecycle has
// derivation rules that are easiest to pin down against an in-memory store.

type EvidenceServiceSuite struct {
	suite.Suite
	store     *evidencestore.InMemory
	audits    *auditmemory.InMemoryStore
	snapshots *recordingInvalidator
	service   *evidence.Service
	userID    id.UserID
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

func (s *EvidenceServiceSuite) SetupTest() {
	s.store = evidencestore.NewInMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.snapshots = &recordingInvalidator{}
	s.userID = id.NewUserID()

	normalizer := evidence.NewNormalizer(evidence.Defaults{
		PassportStamp: 0.85,
		EmailBooking:  0.75,
		Manual:        1.0,
	})
	s.service = evidence.NewService(s.store, normalizer,
		evidence.WithAuditPublisher(audit.NewPublisher(s.audits)),
		evidence.WithSnapshotInvalidator(s.snapshots),
	)
}

func (s *EvidenceServiceSuite) ingestOne(record evidence.SourceRecord) evidence.EvidenceRecord {
	result, err := s.service.Ingest(context.Background(), s.userID, []evidence.SourceRecord{record})
	s.Require().NoError(err)
	s.Require().Len(result.Accepted, 1)
	return result.Accepted[0]
}

func (s *EvidenceServiceSuite) auditActions() []string {
	events, err := s.audits.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	return actions
}

// =============================================================================
// Ingest Tests
// =============================================================================

func (s *EvidenceServiceSuite) TestIngest() {
	ctx := context.Background()

	s.Run("empty batch returns validation error", func() {
		_, err := s.service.Ingest(ctx, s.userID, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nil user id returns validation error", func() {
		_, err := s.service.Ingest(ctx, id.UserID{}, []evidence.SourceRecord{
			{SourceKind: "manual", Date: "2024-03-01", Country: "FR"},
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("persists accepted records and reports rejects", func() {
		result, err := s.service.Ingest(ctx, s.userID, []evidence.SourceRecord{
			{SourceKind: "passport_stamp", Date: "2024-03-01", Country: "France"},
			{SourceKind: "email_booking", Date: "definitely not a date", Country: "FR"},
			{SourceKind: "manual", Date: "2024-03-02", Country: "DE"},
		})
		s.NoError(err)
		s.Len(result.Accepted, 2)
		s.Require().Len(result.Rejected, 1)
		s.Equal(1, result.Rejected[0].Index)
		s.Equal("date", result.Rejected[0].Field)

		page, err := s.service.List(ctx, evidence.ListQuery{UserID: s.userID})
		s.NoError(err)
		s.Len(page.Items, 2)
	})

	s.Run("emits ingest and rejection audit events", func() {
		s.audits.Clear()
		_, err := s.service.Ingest(ctx, s.userID, []evidence.SourceRecord{
			{SourceKind: "passport_stamp", Date: "2024-03-03", Country: "FR"},
			{SourceKind: "passport_stamp", Date: "nope", Country: "FR"},
		})
		s.NoError(err)
		s.ElementsMatch([]string{
			string(audit.EventEvidenceIngested),
			string(audit.EventEvidenceRejected),
		}, s.auditActions())
	})

	s.Run("invalidates the presence snapshot after accepting records", func() {
		before := s.snapshots.count(s.userID)
		s.ingestOne(evidence.SourceRecord{SourceKind: "manual", Date: "2024-03-04", Country: "ES"})
		s.Equal(before+1, s.snapshots.count(s.userID))
	})

	s.Run("fully rejected batch leaves the snapshot alone", func() {
		before := s.snapshots.count(s.userID)
		result, err := s.service.Ingest(ctx, s.userID, []evidence.SourceRecord{
			{SourceKind: "passport_stamp", Date: "garbage", Country: "FR"},
		})
		s.NoError(err)
		s.Empty(result.Accepted)
		s.Equal(before, s.snapshots.count(s.userID))
	})

	s.Run("oversized batch returns validation error", func() {
		svc := evidence.NewService(s.store, evidence.NewNormalizer(evidence.Defaults{Manual: 1.0}),
			evidence.WithMaxBatchSize(2))
		_, err := svc.Ingest(ctx, s.userID, []evidence.SourceRecord{
			{SourceKind: "manual", Date: "2024-03-05", Country: "FR"},
			{SourceKind: "manual", Date: "2024-03-06", Country: "FR"},
			{SourceKind: "manual", Date: "2024-03-07", Country: "FR"},
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("snapshot invalidation failure does not fail the ingest", func() {
		s.snapshots.setErr(errors.New("redis down"))
		defer s.snapshots.setErr(nil)
		_, err := s.service.Ingest(ctx, s.userID, []evidence.SourceRecord{
			{SourceKind: "manual", Date: "2024-03-08", Country: "FR"},
		})
		s.NoError(err)
	})
}

// =============================================================================
// List Tests
// =============================================================================

func (s *EvidenceServiceSuite) TestList() {
	ctx := context.Background()

	s.Run("missing user id returns validation error", func() {
		_, err := s.service.List(ctx, evidence.ListQuery{})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("pages with has_more set while full pages come back", func() {
		records := make([]evidence.SourceRecord, 3)
		for i := range records {
			records[i] = evidence.SourceRecord{
				SourceKind: "manual",
				Date:       time.Date(2024, 4, i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
				Country:    "FR",
			}
		}
		_, err := s.service.Ingest(ctx, s.userID, records)
		s.Require().NoError(err)

		page, err := s.service.List(ctx, evidence.ListQuery{UserID: s.userID, Limit: 2})
		s.NoError(err)
		s.Len(page.Items, 2)
		s.True(page.HasMore)

		page, err = s.service.List(ctx, evidence.ListQuery{UserID: s.userID, Limit: 2, Offset: 2})
		s.NoError(err)
		s.Len(page.Items, 1)
		s.False(page.HasMore)
	})
}

// =============================================================================
// Confirm Tests
// =============================================================================

func (s *EvidenceServiceSuite) TestConfirm() {
	ctx := context.Background()

	s.Run("unknown evidence id returns not found", func() {
		_, err := s.service.Confirm(ctx, s.userID, id.NewEvidenceID(), "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another user's record is invisible", func() {
		original := s.ingestOne(evidence.SourceRecord{SourceKind: "passport_stamp", Date: "2024-05-01", Country: "FR"})
		_, err := s.service.Confirm(ctx, id.NewUserID(), original.ID, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("appends a manual record referencing the original", func() {
		original := s.ingestOne(evidence.SourceRecord{SourceKind: "passport_stamp", Date: "2024-05-02", Country: "FR"})

		derived, err := s.service.Confirm(ctx, s.userID, original.ID, "checked my passport")
		s.Require().NoError(err)
		s.Equal(id.SourceManual, derived.SourceKind)
		s.Equal(original.Date, derived.Date)
		s.Equal("FR", derived.Country)
		s.InDelta(1.0, derived.Confidence, 1e-9)
		s.Contains(derived.EvidenceRefs, original.ID.String())
		s.Equal("confirmation", derived.RawAttributes["action"])
		s.Equal("checked my passport", derived.RawAttributes["note"])

		// Original stays untouched.
		reloaded, err := s.store.FindByID(ctx, s.userID, original.ID)
		s.Require().NoError(err)
		s.Equal(original.Confidence, reloaded.Confidence)

		s.Contains(s.auditActions(), string(audit.EventEvidenceConfirmed))
	})
}

// =============================================================================
// Dispute Tests
// =============================================================================

func (s *EvidenceServiceSuite) TestDispute() {
	ctx := context.Background()

	s.Run("without a corrected country records a zero confidence marker", func() {
		original := s.ingestOne(evidence.SourceRecord{SourceKind: "email_booking", Date: "2024-06-01", Country: "DE"})

		derived, err := s.service.Dispute(ctx, s.userID, original.ID, evidence.Dispute{Note: "never took this trip"})
		s.Require().NoError(err)
		s.Equal(id.SourceManual, derived.SourceKind)
		s.Equal("DE", derived.Country)
		s.Zero(derived.Confidence)
		s.Contains(derived.EvidenceRefs, original.ID.String())
		s.Equal("dispute", derived.RawAttributes["action"])
	})

	s.Run("with a corrected country records a competing manual claim", func() {
		original := s.ingestOne(evidence.SourceRecord{SourceKind: "email_booking", Date: "2024-06-02", Country: "DE"})

		derived, err := s.service.Dispute(ctx, s.userID, original.ID, evidence.Dispute{Country: "France"})
		s.Require().NoError(err)
		s.Equal("FR", derived.Country)
		s.InDelta(1.0, derived.Confidence, 1e-9)

		s.Contains(s.auditActions(), string(audit.EventEvidenceDisputed))
	})

	s.Run("correcting to the same country still yields the marker", func() {
		original := s.ingestOne(evidence.SourceRecord{SourceKind: "email_booking", Date: "2024-06-03", Country: "FR"})

		derived, err := s.service.Dispute(ctx, s.userID, original.ID, evidence.Dispute{Country: "France"})
		s.Require().NoError(err)
		s.Equal("FR", derived.Country)
		s.Zero(derived.Confidence)
	})
}

// =============================================================================
// Fakes
// =============================================================================

type recordingInvalidator struct {
	mu    sync.Mutex
	calls map[id.UserID]int
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID id.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.calls == nil {
		r.calls = map[id.UserID]int{}
	}
	r.calls[userID]++
	return nil
}

func (r *recordingInvalidator) count(userID id.UserID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[userID]
}

func (r *recordingInvalidator) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
