package store

import (
	"context"
	"sync"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/ratelimit"
)

// InMemory counts requests with a sliding window per key. Single-process
// only; multi-replica deployments use the Redis store.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

// slidingWindow keeps the timestamps still inside the window. Expired
// entries are dropped on every check so boundary bursts cannot double-spend.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// NewInMemoryAt builds a store with an injected clock for tests.
func NewInMemoryAt(now func() time.Time) *InMemory {
	s := NewInMemory()
	s.now = now
	return s
}

func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		s.windows[key] = sw
	}
	sw.expire(now)

	if len(sw.timestamps)+1 > limit {
		return &ratelimit.Result{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// Reset clears the counter for a key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (sw *slidingWindow) expire(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
