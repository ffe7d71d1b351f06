package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Service defines the interface for presence queries.
type Service interface {
	Calendar(ctx context.Context, userID id.UserID, from, to time.Time, countries []string) ([]presence.PresenceDay, error)
	Insights(ctx context.Context, userID id.UserID, from, to time.Time) (presence.Insights, error)
	Summary(ctx context.Context, userID id.UserID, from, to time.Time) (presence.Summary, error)
}

// Handler wires presence endpoints to the presence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a presence handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts presence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/presence/calendar", h.HandleCalendar)
	r.Get("/presence/insights", h.HandleInsights)
	r.Get("/presence/summary", h.HandleSummary)
}

// HandleCalendar handles GET /presence/calendar requests.
func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	q, ok := h.parseQuery(w, r, "calendar")
	if !ok {
		return
	}

	days, err := h.service.Calendar(ctx, userID, q.From, q.To, q.Countries)
	if err != nil {
		h.logger.ErrorContext(ctx, "presence calendar failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "presence calendar served",
		"request_id", requestID,
		"user_id", userID,
		"days", len(days),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromDays(days))
}

// HandleInsights handles GET /presence/insights requests.
func (h *Handler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	q, ok := h.parseQuery(w, r, "insights")
	if !ok {
		return
	}

	insights, err := h.service.Insights(ctx, userID, q.From, q.To)
	if err != nil {
		h.logger.ErrorContext(ctx, "presence insights failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromInsights(insights))
}

// HandleSummary handles GET /presence/summary requests.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	q, ok := h.parseQuery(w, r, "summary")
	if !ok {
		return
	}

	summary, err := h.service.Summary(ctx, userID, q.From, q.To)
	if err != nil {
		h.logger.ErrorContext(ctx, "presence summary failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request, endpoint string) (presenceQuery, bool) {
	q, err := parsePresenceQuery(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid presence query",
			"request_id", requestcontext.RequestID(r.Context()),
			"endpoint", endpoint,
			"error", err,
		)
		httputil.WriteError(w, err)
		return presenceQuery{}, false
	}
	return q, true
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
