package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/kafka/consumer"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

// MaterializeStore writes consumed events into the audit_events table.
// The postgres audit store satisfies this.
type MaterializeStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// ComplianceHandler processes compliance audit events. Evidence and report
// lifecycle events feed immigration and tax filings, so a store failure
// returns an error and stalls the partition rather than dropping the event.
type ComplianceHandler struct {
	store  MaterializeStore
	logger *slog.Logger
}

func NewComplianceHandler(store MaterializeStore, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		// Malformed messages commit; redelivery cannot fix them.
		h.logger.ErrorContext(ctx, "CRITICAL: undecodable compliance event dropped",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	if event.UserID.IsNil() {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event missing user",
			"event_id", eventID,
			"action", event.Action,
		)
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("store compliance event %s: %w", eventID, err)
	}

	h.logger.DebugContext(ctx, "stored compliance event",
		"event_id", eventID,
		"action", event.Action,
		"user_id", event.UserID,
	)
	return nil
}
