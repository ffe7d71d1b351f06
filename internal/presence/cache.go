package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platredis "github.com/eshbtc/travelcheck-sub000/internal/platform/redis"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/circuit"
)

const (
	defaultSnapshotTTL = 5 * time.Minute
	invalidateBatch    = 128

	// probeEvery throttles Redis traffic while the breaker is open: one call
	// in probeEvery still goes through so consecutive successes can close
	// the circuit again.
	probeEvery = 16
)

// SnapshotCache keeps reconciled calendars in Redis keyed by user and range.
// Every path degrades: a nil client, an open breaker or any Redis error turns
// reads into misses and writes into no-ops, and the caller recomputes.
type SnapshotCache struct {
	client  *platredis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
	calls   atomic.Uint64
}

func NewSnapshotCache(client *platredis.Client, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("presence-snapshot-cache"),
		logger:  logger,
	}
}

// Get returns the cached calendar for the exact (user, from, to) triple.
// Corrupt entries count as misses and are dropped.
func (c *SnapshotCache) Get(ctx context.Context, userID id.UserID, from, to time.Time) ([]PresenceDay, bool) {
	if c == nil || c.client == nil || c.skip() {
		return nil, false
	}
	key := snapshotKey(userID, from, to)

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		c.recordSuccess(ctx)
		return nil, false
	}
	if err != nil {
		c.recordFailure(ctx, "get", err)
		return nil, false
	}
	c.recordSuccess(ctx)

	var days []PresenceDay
	if err := json.Unmarshal(raw, &days); err != nil {
		c.logger.WarnContext(ctx, "dropping unreadable presence snapshot", "key", key, "error", err)
		c.client.Del(ctx, key)
		return nil, false
	}
	return days, true
}

// Put stores a calendar snapshot. Failures are logged and swallowed since the
// snapshot is only an optimization.
func (c *SnapshotCache) Put(ctx context.Context, userID id.UserID, from, to time.Time, days []PresenceDay) {
	if c == nil || c.client == nil || c.skip() {
		return
	}
	raw, err := json.Marshal(days)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode presence snapshot", "error", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey(userID, from, to), raw, c.ttl).Err(); err != nil {
		c.recordFailure(ctx, "set", err)
		return
	}
	c.recordSuccess(ctx)
}

// Invalidate drops every snapshot belonging to the user, whatever range it
// was computed for. Called after any evidence write so reads see their own
// writes even inside the TTL.
func (c *SnapshotCache) Invalidate(ctx context.Context, userID id.UserID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.skip() {
		return fmt.Errorf("snapshot cache circuit open, skipping invalidation for user %s", userID)
	}

	pattern := fmt.Sprintf("presence:%s:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, invalidateBatch).Iterator()

	keys := make([]string, 0, invalidateBatch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= invalidateBatch {
			if err := flush(); err != nil {
				c.recordFailure(ctx, "del", err)
				return fmt.Errorf("delete presence snapshots: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.recordFailure(ctx, "scan", err)
		return fmt.Errorf("scan presence snapshots: %w", err)
	}
	if err := flush(); err != nil {
		c.recordFailure(ctx, "del", err)
		return fmt.Errorf("delete presence snapshots: %w", err)
	}
	c.recordSuccess(ctx)
	return nil
}

// skip reports whether this call should bypass Redis. While the breaker is
// open most calls bail out immediately; every probeEvery-th call proceeds as
// a probe so the circuit can close once Redis recovers.
func (c *SnapshotCache) skip() bool {
	if !c.breaker.IsOpen() {
		return false
	}
	return c.calls.Add(1)%probeEvery != 0
}

func (c *SnapshotCache) recordFailure(ctx context.Context, op string, err error) {
	_, change := c.breaker.RecordFailure()
	if change.Opened {
		c.logger.WarnContext(ctx, "presence snapshot cache circuit opened", "op", op, "error", err)
		return
	}
	c.logger.DebugContext(ctx, "presence snapshot cache error", "op", op, "error", err)
}

func (c *SnapshotCache) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "presence snapshot cache circuit closed")
	}
}

// snapshotKey builds "presence:{user}:{from}:{to}" with open bounds spelled
// out, so Invalidate can match on the user segment alone.
func snapshotKey(userID id.UserID, from, to time.Time) string {
	return fmt.Sprintf("presence:%s:%s:%s", userID, boundPart(from), boundPart(to))
}

func boundPart(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01-02")
}
