package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
)

// OutboxEntry is one undelivered audit event as stored in the outbox table.
// The payload is the wire form published to Kafka verbatim.
type OutboxEntry struct {
	ID        uuid.UUID
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}

// payload is the JSON wire structure shared by the outbox store (producer
// side) and the consumer handlers. The event ID doubles as the Kafka message
// key so materialization stays idempotent under redelivery.
type payload struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	UserID       string `json:"user_id,omitempty"`
	Subject      string `json:"subject"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	IP           string `json:"ip,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
}

// EncodePayload serializes an event into its Kafka wire form.
func EncodePayload(eventID uuid.UUID, event Event) ([]byte, error) {
	category := event.Category
	if category == "" {
		category = AuditEvent(event.Action).Category()
	}
	p := payload{
		ID:           eventID.String(),
		Category:     string(category),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		Subject:      event.Subject,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Reason:       event.Reason,
		IP:           event.IP,
		RequestID:    event.RequestID,
		ActorID:      event.ActorID,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	return json.Marshal(p)
}

// DecodePayload parses the Kafka wire form back into an event. A missing or
// unparsable timestamp falls back to receipt time rather than failing, since
// a malformed clock must not lose the whole event.
func DecodePayload(data []byte) (uuid.UUID, Event, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return uuid.Nil, Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return uuid.Nil, Event{}, fmt.Errorf("parse audit event id %q: %w", p.ID, err)
	}

	event := Event{
		Category:     EventCategory(p.Category),
		Subject:      p.Subject,
		Action:       p.Action,
		ResourceType: p.ResourceType,
		ResourceID:   p.ResourceID,
		Reason:       p.Reason,
		IP:           p.IP,
		RequestID:    p.RequestID,
		ActorID:      p.ActorID,
	}
	if ts, tsErr := time.Parse(time.RFC3339Nano, p.Timestamp); tsErr == nil {
		event.Timestamp = ts
	} else {
		event.Timestamp = time.Now()
	}
	if p.UserID != "" {
		if uid, uidErr := uuid.Parse(p.UserID); uidErr == nil {
			event.UserID = id.UserID(uid)
		}
	}
	return eventID, event, nil
}
