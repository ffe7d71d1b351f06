// Package postgres implements audit.Store with the transactional outbox
// pattern. Append writes the event to the outbox table through any ambient
// transaction, so the event commits atomically with the operation it records.
// The outbox worker drains the table into Kafka; the consumer materializes
// events into audit_events for querying.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	txcontext "github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

// Store writes audit events to the outbox and reads materialized events.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event to the outbox table for Kafka publishing.
// Runs inside the caller's transaction when one is in context.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload, err := audit.EncodePayload(eventID, event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.UserID.IsNil() {
		aggregateType = "user"
		aggregateID = event.UserID.String()
	}

	q := txcontext.Within(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, topic, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		audit.TopicFor(category),
		payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// NextBatch returns up to limit unpublished outbox entries, oldest first.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var entry audit.OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.Topic, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given outbox entries as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1)`,
		pq.Array(ids), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

// AppendWithID materializes a consumed audit event into the audit_events
// table with the original event ID. Idempotent via ON CONFLICT DO NOTHING so
// Kafka redelivery never duplicates rows.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, subject, action,
			resource_type, resource_id, reason, ip, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		eventID,
		string(event.Category),
		event.Timestamp,
		userID,
		event.Subject,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		event.Reason,
		event.IP,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectEventColumns = `
	category, timestamp, user_id, subject, action,
	resource_type, resource_id, reason, ip, request_id, actor_id
`

// ListByUser returns materialized events for a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectEventColumns+` FROM audit_events WHERE user_id = $1 ORDER BY timestamp DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent materialized events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectEventColumns+` FROM audit_events ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
			userID   *uuid.UUID
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&userID,
			&event.Subject,
			&event.Action,
			&event.ResourceType,
			&event.ResourceID,
			&event.Reason,
			&event.IP,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if userID != nil {
			event.UserID = id.UserID(*userID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
