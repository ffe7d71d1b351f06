package store

import (
	"context"
	"sort"
	"sync"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
)

// InMemory keeps artifact descriptors per user. Used in tests and local runs
// without a database.
type InMemory struct {
	mu        sync.RWMutex
	artifacts map[id.UserID][]artifact.Artifact
}

func NewInMemory() *InMemory {
	return &InMemory{artifacts: make(map[id.UserID][]artifact.Artifact)}
}

func (s *InMemory) Insert(_ context.Context, a artifact.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.UserID] = append(s.artifacts[a.UserID], a)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.artifacts[userID] {
		if a.ID == artifactID {
			out := a
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByUser returns every descriptor a user has registered, newest first.
// Registration-time duplicate detection scans this whole set.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]artifact.Artifact, error) {
	s.mu.RLock()
	matched := append([]artifact.Artifact{}, s.artifacts[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].RegisteredAt.Equal(matched[j].RegisteredAt) {
			return matched[i].RegisteredAt.After(matched[j].RegisteredAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return matched, nil
}

func (s *InMemory) Delete(_ context.Context, userID id.UserID, artifactID id.ArtifactID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.artifacts[userID]
	for i, a := range current {
		if a.ID == artifactID {
			s.artifacts[userID] = append(current[:i:i], current[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}
