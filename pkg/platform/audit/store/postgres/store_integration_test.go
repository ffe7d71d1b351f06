//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	auditpostgres "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/store/postgres"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
	"github.com/eshbtc/travelcheck-sub000/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
	runner   *tx.Runner
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
	s.runner = tx.NewRunner(s.postgres.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *AuditPostgresSuite) event(action string) audit.Event {
	return audit.Event{
		Timestamp:    time.Now().UTC(),
		UserID:       id.UserID(uuid.New()),
		Action:       action,
		ResourceType: "evidence",
		ResourceID:   uuid.NewString(),
		RequestID:    uuid.NewString(),
	}
}

func (s *AuditPostgresSuite) TestAppendRoutesToCategoryTopic() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.event(string(audit.EventEvidenceIngested))))
	s.Require().NoError(s.store.Append(ctx, s.event(string(audit.EventAdapterKeyRotated))))
	s.Require().NoError(s.store.Append(ctx, s.event(string(audit.EventArtifactDeleted))))

	entries, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	topics := map[string]bool{}
	for _, e := range entries {
		topics[e.Topic] = true
	}
	s.True(topics[audit.TopicCompliance])
	s.True(topics[audit.TopicSecurity])
	s.True(topics[audit.TopicOperations])
}

func (s *AuditPostgresSuite) TestAppendRollsBackWithTransaction() {
	ctx := context.Background()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, s.event(string(audit.EventEvidenceIngested))); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	s.Error(err)

	entries, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *AuditPostgresSuite) TestMarkPublishedRetiresEntries() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.event(string(audit.EventEvidenceIngested))))
	s.Require().NoError(s.store.Append(ctx, s.event(string(audit.EventEvidenceConfirmed))))

	entries, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{entries[0].ID}))

	remaining, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(entries[1].ID, remaining[0].ID)
}

func (s *AuditPostgresSuite) TestAppendWithIDIsIdempotent() {
	ctx := context.Background()
	eventID := uuid.New()
	event := s.event(string(audit.EventReportGenerated))
	event.Category = audit.CategoryCompliance

	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))
	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))

	events, err := s.store.ListByUser(ctx, event.UserID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventReportGenerated), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)
}

func (s *AuditPostgresSuite) TestOutboxPayloadRoundTrip() {
	ctx := context.Background()
	event := s.event(string(audit.EventEvidenceDisputed))
	event.Reason = "country mismatch"

	s.Require().NoError(s.store.Append(ctx, event))

	entries, err := s.store.NextBatch(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	eventID, decoded, err := audit.DecodePayload(entries[0].Payload)
	s.Require().NoError(err)
	s.Equal(entries[0].ID, eventID)
	s.Equal(event.UserID, decoded.UserID)
	s.Equal("country mismatch", decoded.Reason)
	s.Equal(audit.CategoryCompliance, decoded.Category)
}
