package consumer

import (
	"context"
	"log/slog"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/kafka/consumer"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
)

// OpsHandler processes operational audit events (exports downloaded,
// artifacts registered, rejected records). These are best-effort: a store
// failure logs and commits rather than stalling the compliance stream behind
// routine activity.
type OpsHandler struct {
	store  MaterializeStore
	logger *slog.Logger
}

func NewOpsHandler(store MaterializeStore, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{store: store, logger: logger}
}

func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		h.logger.DebugContext(ctx, "undecodable ops event dropped",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.WarnContext(ctx, "failed to store ops event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return nil
	}
	return nil
}
