package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaconsumer "github.com/eshbtc/travelcheck-sub000/internal/platform/kafka/consumer"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

type fakeMaterializeStore struct {
	events map[uuid.UUID]audit.Event
	err    error
}

func (f *fakeMaterializeStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	if f.err != nil {
		return f.err
	}
	if f.events == nil {
		f.events = make(map[uuid.UUID]audit.Event)
	}
	f.events[eventID] = event
	return nil
}

type recordingHandler struct {
	topics []string
}

func (r *recordingHandler) Handle(_ context.Context, msg *kafkaconsumer.Message) error {
	r.topics = append(r.topics, msg.Topic)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(t *testing.T, event audit.Event) (*kafkaconsumer.Message, uuid.UUID) {
	t.Helper()
	eventID := uuid.New()
	payload, err := audit.EncodePayload(eventID, event)
	require.NoError(t, err)
	return &kafkaconsumer.Message{
		Topic: audit.TopicFor(event.Category),
		Key:   []byte(eventID.String()),
		Value: payload,
	}, eventID
}

func TestRouter_DispatchesByTopic(t *testing.T) {
	compliance := &recordingHandler{}
	ops := &recordingHandler{}
	router := NewRouter(discardLogger(), nil)
	router.Register(audit.TopicCompliance, compliance)
	router.Register(audit.TopicOperations, ops)

	err := router.Handle(context.Background(), &kafkaconsumer.Message{Topic: audit.TopicCompliance})
	require.NoError(t, err)
	err = router.Handle(context.Background(), &kafkaconsumer.Message{Topic: audit.TopicOperations})
	require.NoError(t, err)

	assert.Equal(t, []string{audit.TopicCompliance}, compliance.topics)
	assert.Equal(t, []string{audit.TopicOperations}, ops.topics)
}

func TestRouter_UnknownTopicFallsBackOrCommits(t *testing.T) {
	fallback := &recordingHandler{}
	withFallback := NewRouter(discardLogger(), fallback)
	err := withFallback.Handle(context.Background(), &kafkaconsumer.Message{Topic: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"unknown"}, fallback.topics)

	noFallback := NewRouter(discardLogger(), nil)
	err = noFallback.Handle(context.Background(), &kafkaconsumer.Message{Topic: "unknown"})
	assert.NoError(t, err)
}

func TestComplianceHandler_MaterializesEvent(t *testing.T) {
	store := &fakeMaterializeStore{}
	handler := NewComplianceHandler(store, discardLogger())

	event := audit.Event{
		Category: audit.CategoryCompliance,
		UserID:   id.UserID(uuid.New()),
		Action:   string(audit.EventReportGenerated),
	}
	msg, eventID := message(t, event)

	require.NoError(t, handler.Handle(context.Background(), msg))
	stored, ok := store.events[eventID]
	require.True(t, ok)
	assert.Equal(t, string(audit.EventReportGenerated), stored.Action)
	assert.Equal(t, event.UserID, stored.UserID)
}

func TestComplianceHandler_StoreFailureStallsPartition(t *testing.T) {
	store := &fakeMaterializeStore{err: errors.New("db down")}
	handler := NewComplianceHandler(store, discardLogger())

	msg, _ := message(t, audit.Event{
		Category: audit.CategoryCompliance,
		UserID:   id.UserID(uuid.New()),
		Action:   string(audit.EventEvidenceIngested),
	})
	assert.Error(t, handler.Handle(context.Background(), msg))
}

func TestComplianceHandler_MalformedMessageCommits(t *testing.T) {
	store := &fakeMaterializeStore{}
	handler := NewComplianceHandler(store, discardLogger())

	err := handler.Handle(context.Background(), &kafkaconsumer.Message{
		Topic: audit.TopicCompliance,
		Value: []byte("garbage"),
	})
	assert.NoError(t, err)
	assert.Empty(t, store.events)
}

func TestComplianceHandler_MissingUserCommitsWithoutStoring(t *testing.T) {
	store := &fakeMaterializeStore{}
	handler := NewComplianceHandler(store, discardLogger())

	msg, _ := message(t, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventReportGenerated),
	})
	assert.NoError(t, handler.Handle(context.Background(), msg))
	assert.Empty(t, store.events)
}

func TestOpsHandler_StoreFailureStillCommits(t *testing.T) {
	store := &fakeMaterializeStore{err: errors.New("db down")}
	handler := NewOpsHandler(store, discardLogger())

	msg, _ := message(t, audit.Event{
		Category: audit.CategoryOperations,
		Action:   string(audit.EventReportExportDownloaded),
	})
	assert.NoError(t, handler.Handle(context.Background(), msg))
}

func TestSecurityHandler_MaterializesWithoutUser(t *testing.T) {
	store := &fakeMaterializeStore{}
	handler := NewSecurityHandler(store, discardLogger())

	msg, eventID := message(t, audit.Event{
		Category: audit.CategorySecurity,
		Action:   string(audit.EventAdapterKeyRotated),
		ActorID:  "adapter-7",
	})
	require.NoError(t, handler.Handle(context.Background(), msg))
	stored, ok := store.events[eventID]
	require.True(t, ok)
	assert.Equal(t, "adapter-7", stored.ActorID)
}
