package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/redis"
	"github.com/eshbtc/travelcheck-sub000/internal/ratelimit"
)

// Redis counts requests with a fixed window shared across replicas. The
// window key embeds its start second, so INCR on a fresh key opens a new
// window and the TTL retires old ones.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := s.now()
	windowStart := now.Truncate(window)
	resetAt := windowStart.Add(window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	// TTL slightly past the window end so in-flight checks at the boundary
	// still read the old bucket.
	pipe.Expire(ctx, bucket, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit window increment: %w", err)
	}

	count := int(incr.Val())
	if count > limit {
		return &ratelimit.Result{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the current window for a key.
func (s *Redis) Reset(ctx context.Context, key string, window time.Duration) error {
	windowStart := s.now().Truncate(window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())
	return s.client.Del(ctx, bucket).Err()
}
