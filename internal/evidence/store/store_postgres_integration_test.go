//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	"github.com/eshbtc/travelcheck-sub000/internal/evidence/store"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/testutil/containers"
)

type EvidencePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestEvidencePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EvidencePostgresSuite))
}

func (s *EvidencePostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *EvidencePostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func (s *EvidencePostgresSuite) record(userID id.UserID, date, country string, kind id.SourceKind) evidence.EvidenceRecord {
	return evidence.EvidenceRecord{
		ID:           id.EvidenceID(uuid.New()),
		UserID:       userID,
		SourceKind:   kind,
		Date:         day(date),
		Country:      country,
		Confidence:   0.85,
		EvidenceRefs: []string{"stamp-7"},
		RawAttributes: map[string]string{
			"page": "14",
		},
		IngestedAt: time.Now().UTC(),
	}
}

func (s *EvidencePostgresSuite) TestInsertAndFindByID() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	rec := s.record(userID, "2025-03-10", "FR", id.SourcePassportStamp)

	s.Require().NoError(s.store.Insert(ctx, []evidence.EvidenceRecord{rec}))

	got, err := s.store.FindByID(ctx, userID, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal("FR", got.Country)
	s.Equal(id.SourcePassportStamp, got.SourceKind)
	s.Equal(rec.Day(), got.Day())
	s.InDelta(0.85, got.Confidence, 1e-9)
	s.Equal([]string{"stamp-7"}, got.EvidenceRefs)
	s.Equal("14", got.RawAttributes["page"])
}

func (s *EvidencePostgresSuite) TestFindByIDScopedToUser() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	rec := s.record(owner, "2025-03-10", "FR", id.SourcePassportStamp)
	s.Require().NoError(s.store.Insert(ctx, []evidence.EvidenceRecord{rec}))

	_, err := s.store.FindByID(ctx, id.UserID(uuid.New()), rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *EvidencePostgresSuite) TestListForRangeIncludesBounds() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	records := []evidence.EvidenceRecord{
		s.record(userID, "2025-03-01", "FR", id.SourcePassportStamp),
		s.record(userID, "2025-03-15", "DE", id.SourceEmailBooking),
		s.record(userID, "2025-03-31", "FR", id.SourceManual),
		s.record(userID, "2025-04-01", "ES", id.SourcePassportStamp),
	}
	s.Require().NoError(s.store.Insert(ctx, records))

	got, err := s.store.ListForRange(ctx, userID, day("2025-03-01"), day("2025-03-31"))
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	// Ordered by date ascending; both boundary days included, April excluded.
	s.Equal("FR", got[0].Country)
	s.Equal("DE", got[1].Country)
	s.Equal("FR", got[2].Country)
}

func (s *EvidencePostgresSuite) TestListPagination() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	var records []evidence.EvidenceRecord
	for i := 0; i < 5; i++ {
		rec := s.record(userID, "2025-03-10", "FR", id.SourcePassportStamp)
		rec.IngestedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		records = append(records, rec)
	}
	s.Require().NoError(s.store.Insert(ctx, records))

	page1, err := s.store.List(ctx, evidence.ListQuery{UserID: userID, Limit: 2})
	s.Require().NoError(err)
	s.Len(page1, 2)

	page2, err := s.store.List(ctx, evidence.ListQuery{UserID: userID, Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(page2, 2)
	s.NotEqual(page1[0].ID, page2[0].ID)

	// Newest ingest first.
	s.True(page1[0].IngestedAt.After(page1[1].IngestedAt) || page1[0].IngestedAt.Equal(page1[1].IngestedAt))
}

func (s *EvidencePostgresSuite) TestInsertEmptyBatchIsNoop() {
	s.NoError(s.store.Insert(context.Background(), nil))
}
