package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/kafka/consumer"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

// SecurityHandler processes security audit events (adapter key issuance and
// rotation). Store failures stall the partition: credential history must
// survive for forensics.
type SecurityHandler struct {
	store  MaterializeStore
	logger *slog.Logger
}

func NewSecurityHandler(store MaterializeStore, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{store: store, logger: logger}
}

func (h *SecurityHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "undecodable security event dropped",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("store security event %s: %w", eventID, err)
	}

	h.logger.InfoContext(ctx, "stored security event",
		"event_id", eventID,
		"action", event.Action,
		"actor_id", event.ActorID,
		"ip", event.IP,
	)
	return nil
}
