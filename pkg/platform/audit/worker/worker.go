// Package worker drains the audit outbox into Kafka. The worker polls for
// unpublished entries, produces each to its topic, and marks delivered rows.
// Publish failures back off and retry; the outbox row is only marked after
// the broker acknowledged, so delivery is at-least-once and the consumer
// deduplicates by event ID.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

// OutboxSource reads and retires outbox entries. The postgres audit store
// satisfies this.
type OutboxSource interface {
	NextBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer publishes one record to a topic. The kafka platform producer
// satisfies this.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Worker pumps outbox entries into the broker.
type Worker struct {
	source   OutboxSource
	producer Producer
	logger   *slog.Logger

	pollInterval time.Duration
	batchSize    int
	maxBackoff   time.Duration
}

type Option func(*Worker)

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func New(source OutboxSource, producer Producer, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		source:       source,
		producer:     producer,
		logger:       logger,
		pollInterval: time.Second,
		batchSize:    100,
		maxBackoff:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. A full batch triggers an immediate
// re-poll so a backlog drains at production speed; an empty or failed poll
// waits for the next tick.
func (w *Worker) Run(ctx context.Context) error {
	backoff := w.pollInterval
	for {
		published, err := w.drainOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			backoff = min(backoff*2, w.maxBackoff)
		} else {
			backoff = w.pollInterval
			if published == w.batchSize {
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// drainOnce publishes one batch and returns how many entries went out.
func (w *Worker) drainOnce(ctx context.Context) (int, error) {
	entries, err := w.source.NextBatch(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := w.producer.Publish(ctx, entry.Topic, []byte(entry.ID.String()), entry.Payload); err != nil {
			// Mark what made it out; the rest retries next cycle.
			if markErr := w.source.MarkPublished(ctx, published); markErr != nil {
				w.logger.ErrorContext(ctx, "mark published after partial drain failed", "error", markErr)
			}
			return len(published), err
		}
		published = append(published, entry.ID)
	}

	if err := w.source.MarkPublished(ctx, published); err != nil {
		// Entries will republish; the consumer's ON CONFLICT guard absorbs it.
		return len(published), err
	}

	w.logger.DebugContext(ctx, "audit outbox drained", "published", len(published))
	return len(published), nil
}
