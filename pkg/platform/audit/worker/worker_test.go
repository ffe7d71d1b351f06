package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

type fakeSource struct {
	mu        sync.Mutex
	pending   []audit.OutboxEntry
	published []uuid.UUID
	batchErr  error
}

func (f *fakeSource) NextBatch(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]audit.OutboxEntry{}, f.pending[:limit]...), nil
}

func (f *fakeSource) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ids...)
	remaining := f.pending[:0]
	for _, entry := range f.pending {
		retired := false
		for _, pid := range ids {
			if entry.ID == pid {
				retired = true
				break
			}
		}
		if !retired {
			remaining = append(remaining, entry)
		}
	}
	f.pending = remaining
	return nil
}

type fakeProducer struct {
	mu      sync.Mutex
	records map[string][][]byte
	failOn  string
}

func (f *fakeProducer) Publish(_ context.Context, topic string, _, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failOn {
		return errors.New("broker unreachable")
	}
	if f.records == nil {
		f.records = make(map[string][][]byte)
	}
	f.records[topic] = append(f.records[topic], value)
	return nil
}

func entry(topic string) audit.OutboxEntry {
	return audit.OutboxEntry{
		ID:        uuid.New(),
		Topic:     topic,
		Payload:   []byte(`{"action":"report_generated"}`),
		CreatedAt: time.Now(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_DrainPublishesAndRetires(t *testing.T) {
	source := &fakeSource{pending: []audit.OutboxEntry{
		entry(audit.TopicCompliance),
		entry(audit.TopicOperations),
	}}
	producer := &fakeProducer{}
	w := New(source, producer, discardLogger())

	published, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	assert.Len(t, producer.records[audit.TopicCompliance], 1)
	assert.Len(t, producer.records[audit.TopicOperations], 1)
	assert.Empty(t, source.pending)
}

func TestWorker_PartialFailureRetiresOnlyDelivered(t *testing.T) {
	good := entry(audit.TopicCompliance)
	bad := entry(audit.TopicSecurity)
	source := &fakeSource{pending: []audit.OutboxEntry{good, bad}}
	producer := &fakeProducer{failOn: audit.TopicSecurity}
	w := New(source, producer, discardLogger())

	published, err := w.drainOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, published)
	// The delivered entry is retired, the failed one stays for retry.
	require.Len(t, source.pending, 1)
	assert.Equal(t, bad.ID, source.pending[0].ID)
	assert.Equal(t, []uuid.UUID{good.ID}, source.published)
}

func TestWorker_EmptyOutboxIsQuiet(t *testing.T) {
	source := &fakeSource{}
	producer := &fakeProducer{}
	w := New(source, producer, discardLogger())

	published, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
	assert.Empty(t, producer.records)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	source := &fakeSource{pending: []audit.OutboxEntry{entry(audit.TopicOperations)}}
	producer := &fakeProducer{}
	w := New(source, producer, discardLogger(), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
