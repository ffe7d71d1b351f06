package audit

import "context"

// Store persists audit events. The postgres implementation writes to the
// transactional outbox so an event commits atomically with the operation it
// records; Kafka is the source of truth downstream.
type Store interface {
	Append(ctx context.Context, event Event) error
}
