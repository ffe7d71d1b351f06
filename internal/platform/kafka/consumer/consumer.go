// Package consumer runs a consumer-group poll loop over the audit topics and
// hands each record to a handler. Offsets commit only after the handler
// returns nil, so a crashed consumer re-reads unprocessed records; handlers
// must therefore be idempotent.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/config"
)

// Message is one consumed record, decoupled from the broker client so
// handlers stay testable.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Partition int32
	Offset    int64
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer polls the audit topics as part of a consumer group.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New builds a consumer over the given topics. The caller owns Close via Run
// returning.
func New(cfg config.KafkaConfig, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("build kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is cancelled. Handler failures stall the partition
// rather than skip records: audit materialization must not lose events.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "audit consumer fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handleErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if handleErr != nil {
				return
			}
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
				Partition: record.Partition,
				Offset:    record.Offset,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				handleErr = err
				c.logger.ErrorContext(ctx, "audit consumer handler failed",
					"topic", record.Topic,
					"offset", record.Offset,
					"error", err,
				)
			}
		})
		if handleErr != nil {
			// Leave offsets uncommitted and retry after a beat.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "audit consumer commit failed", "error", err)
		}
	}
}
