package store

import (
	"context"
	"strings"
	"sync"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
)

// InMemory keeps adapter clients in a map. Used in tests and local runs
// without a database.
type InMemory struct {
	mu      sync.RWMutex
	clients map[id.AdapterID]adapter.Adapter
}

func NewInMemory() *InMemory {
	return &InMemory{clients: make(map[id.AdapterID]adapter.Adapter)}
}

func (s *InMemory) Create(_ context.Context, adp *adapter.Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[adp.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.clients {
		if strings.EqualFold(existing.Name, adp.Name) {
			return sentinel.ErrConflict
		}
	}
	s.clients[adp.ID] = *adp
	return nil
}

func (s *InMemory) Update(_ context.Context, adp *adapter.Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[adp.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.clients[adp.ID] = *adp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, adapterID id.AdapterID) (*adapter.Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adp, exists := s.clients[adapterID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := adp
	return &out, nil
}
