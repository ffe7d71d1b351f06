package store

import (
	"context"
	"sort"
	"sync"

	"github.com/eshbtc/travelcheck-sub000/internal/report"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
)

// InMemory keeps composed reports per user. Used in tests and local runs
// without a database.
type InMemory struct {
	mu      sync.RWMutex
	reports map[id.UserID][]report.Report
}

func NewInMemory() *InMemory {
	return &InMemory{reports: make(map[id.UserID][]report.Report)}
}

func (s *InMemory) Insert(_ context.Context, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.UserID] = append(s.reports[r.UserID], r)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID, reportID id.ReportID) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports[userID] {
		if r.ID == reportID {
			out := r
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns one page of a user's reports, newest generation first.
func (s *InMemory) List(_ context.Context, q report.ListQuery) ([]report.Report, error) {
	s.mu.RLock()
	matched := make([]report.Report, 0, len(s.reports[q.UserID]))
	for _, r := range s.reports[q.UserID] {
		if q.Type != "" && r.Type != q.Type {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].GeneratedAt.Equal(matched[j].GeneratedAt) {
			return matched[i].GeneratedAt.After(matched[j].GeneratedAt)
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
	return append([]report.Report{}, matched...), nil
}

func (s *InMemory) Delete(_ context.Context, userID id.UserID, reportID id.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.reports[userID]
	for i, r := range rows {
		if r.ID == reportID {
			s.reports[userID] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}
