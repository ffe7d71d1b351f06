package artifact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	artifactstore "github.com/eshbtc/travelcheck-sub000/internal/artifact/store"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	auditmemory "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/store/memory"
)

type ArtifactServiceSuite struct {
	suite.Suite
	store   *artifactstore.InMemory
	audits  *auditmemory.InMemoryStore
	service *artifact.Service
	userID  id.UserID
}

func TestArtifactServiceSuite(t *testing.T) {
	suite.Run(t, new(ArtifactServiceSuite))
}

func (s *ArtifactServiceSuite) SetupTest() {
	s.store = artifactstore.NewInMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.userID = id.NewUserID()
	s.service = artifact.NewService(s.store, artifact.NewDetector(0.95, 0.8),
		artifact.WithAuditPublisher(audit.NewPublisher(s.audits)),
	)
}

func (s *ArtifactServiceSuite) register(input artifact.RegisterInput) (*artifact.Artifact, []artifact.DuplicateGroup) {
	created, groups, err := s.service.Register(context.Background(), s.userID, input)
	s.Require().NoError(err)
	return created, groups
}

func (s *ArtifactServiceSuite) auditActions() []string {
	events, err := s.audits.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	return actions
}

// =============================================================================
// Register Tests
// =============================================================================

func (s *ArtifactServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("missing filename returns validation error", func() {
		_, _, err := s.service.Register(ctx, s.userID, artifact.RegisterInput{SourceKind: id.SourcePassportStamp})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("first upload has no duplicate warnings", func() {
		created, groups := s.register(artifact.RegisterInput{
			Filename:   "passport.jpg",
			SizeBytes:  2048,
			SourceKind: id.SourcePassportStamp,
		})
		s.False(created.ID.IsNil())
		s.Empty(groups)
		s.Contains(s.auditActions(), string(audit.EventArtifactRegistered))
	})

	s.Run("re-uploading the same descriptor flags an identical group", func() {
		first, _ := s.register(artifact.RegisterInput{
			Filename:   "stamp_page_3.jpg",
			SizeBytes:  4096,
			SourceKind: id.SourcePassportStamp,
		})
		second, groups := s.register(artifact.RegisterInput{
			Filename:   "stamp_page_3.jpg",
			SizeBytes:  4096,
			SourceKind: id.SourcePassportStamp,
		})

		s.Require().Len(groups, 1)
		s.Equal(artifact.MatchIdentical, groups[0].Kind)
		s.ElementsMatch([]string{first.ID.String(), second.ID.String()}, groups[0].ItemIDs)
		s.Contains(s.auditActions(), string(audit.EventDuplicateFlagged))
	})

	s.Run("groups not involving the new artifact are not re-reported", func() {
		s.register(artifact.RegisterInput{Filename: "dup.pdf", SizeBytes: 9, SourceKind: id.SourceEmailBooking})
		s.register(artifact.RegisterInput{Filename: "dup.pdf", SizeBytes: 9, SourceKind: id.SourceEmailBooking})

		_, groups := s.register(artifact.RegisterInput{
			Filename:   "fresh_unrelated.png",
			SizeBytes:  77,
			SourceKind: id.SourceManual,
		})
		s.Empty(groups)
	})

	s.Run("detection never deletes anything", func() {
		before, err := s.service.List(ctx, s.userID)
		s.Require().NoError(err)
		s.register(artifact.RegisterInput{Filename: "dup.pdf", SizeBytes: 9, SourceKind: id.SourceEmailBooking})
		after, err := s.service.List(ctx, s.userID)
		s.Require().NoError(err)
		s.Len(after, len(before)+1)
	})
}

// =============================================================================
// Scan Tests
// =============================================================================

func (s *ArtifactServiceSuite) TestScan() {
	ctx := context.Background()

	s.Run("fewer than two items is a validation error", func() {
		_, err := s.service.Scan(ctx, s.userID, []artifact.Descriptor{{ID: "only"}})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("scans a posted set without persisting", func() {
		groups, err := s.service.Scan(ctx, s.userID, []artifact.Descriptor{
			{ID: "u1", Filename: "receipt.pdf", Checksum: "h1"},
			{ID: "u2", Filename: "receipt.pdf", Checksum: "h1"},
			{ID: "u3", Filename: "other.txt"},
		})
		s.Require().NoError(err)
		s.Require().Len(groups, 1)
		s.Equal([]string{"u1", "u2"}, groups[0].ItemIDs)

		stored, err := s.service.List(ctx, s.userID)
		s.Require().NoError(err)
		s.Empty(stored)
	})
}

// =============================================================================
// Delete Tests
// =============================================================================

func (s *ArtifactServiceSuite) TestDelete() {
	ctx := context.Background()

	s.Run("unknown artifact returns not found", func() {
		err := s.service.Delete(ctx, s.userID, id.NewArtifactID())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("removes the descriptor and audits it", func() {
		created, _ := s.register(artifact.RegisterInput{Filename: "temp.jpg", SizeBytes: 1, SourceKind: id.SourceManual})

		s.Require().NoError(s.service.Delete(ctx, s.userID, created.ID))

		remaining, err := s.service.List(ctx, s.userID)
		s.Require().NoError(err)
		for _, a := range remaining {
			s.NotEqual(created.ID, a.ID)
		}
		s.Contains(s.auditActions(), string(audit.EventArtifactDeleted))
	})

	s.Run("cannot delete another user's artifact", func() {
		created, _ := s.register(artifact.RegisterInput{Filename: "mine.jpg", SizeBytes: 5, SourceKind: id.SourceManual})
		err := s.service.Delete(ctx, id.NewUserID(), created.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
