// Package kafka owns the franz-go client lifecycle for the audit pipeline.
// Producers and consumers share the broker seed list from config; topic
// bootstrap runs once at startup so workers never race topic auto-creation.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/config"
)

// Producer publishes records to audit topics.
type Producer struct {
	client *kgo.Client
}

// NewProducer builds a producing client. The caller owns Close.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("build kafka producer: %w", err)
	}
	return &Producer{client: client}, nil
}

// Publish synchronously produces one record. Synchronous because the outbox
// worker must not mark an entry published before the broker acknowledged it.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Health pings the brokers.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and releases the connection.
func (p *Producer) Close() {
	p.client.Close()
}

// EnsureTopics creates the given topics when they do not exist yet.
// Existing topics are left untouched.
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, topics ...string) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return fmt.Errorf("build kafka admin client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, response := range responses.Sorted() {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}
	return nil
}
