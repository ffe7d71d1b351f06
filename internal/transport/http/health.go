package httptransport

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
)

// Pinger is a collaborator that can report liveness.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler answers /healthz with per-dependency status. Optional
// dependencies (cache, broker) degrade the response but never fail it; the
// database is the only hard requirement.
type HealthHandler struct {
	db     *sql.DB
	cache  Pinger
	broker Pinger
}

func NewHealthHandler(db *sql.DB, cache, broker Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, broker: broker}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Checks["postgres"] = "unreachable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["postgres"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			resp.Checks["redis"] = "unreachable"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		} else {
			resp.Checks["redis"] = "ok"
		}
	}

	if h.broker != nil {
		if err := h.broker.Health(ctx); err != nil {
			resp.Checks["kafka"] = "unreachable"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		} else {
			resp.Checks["kafka"] = "ok"
		}
	}

	httputil.WriteJSON(w, status, resp)
}
