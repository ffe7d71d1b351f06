package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
)

// InMemory keeps evidence records per user. Used in tests and local runs
// without a database.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.UserID][]evidence.EvidenceRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.UserID][]evidence.EvidenceRecord)}
}

func (s *InMemory) Insert(_ context.Context, records []evidence.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.UserID] = append(s.records[rec.UserID], rec)
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID, evidenceID id.EvidenceID) (*evidence.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records[userID] {
		if rec.ID == evidenceID {
			out := rec
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns one page of a user's records, newest ingest first.
func (s *InMemory) List(_ context.Context, q evidence.ListQuery) ([]evidence.EvidenceRecord, error) {
	s.mu.RLock()
	matched := make([]evidence.EvidenceRecord, 0, len(s.records[q.UserID]))
	for _, rec := range s.records[q.UserID] {
		if inRange(rec.Date, q.From, q.To) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].IngestedAt.Equal(matched[j].IngestedAt) {
			return matched[i].IngestedAt.After(matched[j].IngestedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return append([]evidence.EvidenceRecord{}, matched...), nil
}

// ListForRange returns the full evidence set for a user within [from, to],
// date ascending. Reconciliation materializes this set before running.
func (s *InMemory) ListForRange(_ context.Context, userID id.UserID, from, to time.Time) ([]evidence.EvidenceRecord, error) {
	s.mu.RLock()
	matched := make([]evidence.EvidenceRecord, 0, len(s.records[userID]))
	for _, rec := range s.records[userID] {
		if inRange(rec.Date, from, to) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	return matched, nil
}

func inRange(day, from, to time.Time) bool {
	if !from.IsZero() && day.Before(from) {
		return false
	}
	if !to.IsZero() && day.After(to) {
		return false
	}
	return true
}
