package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Service defines the interface for adapter client management.
type Service interface {
	Register(ctx context.Context, name string) (*adapter.Adapter, string, error)
	RotateKey(ctx context.Context, adapterID id.AdapterID) (*adapter.Adapter, string, error)
}

// Handler wires adapter management endpoints to the adapter service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an adapter handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts adapter management endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/adapters", h.HandleRegister)
	r.Post("/adapters/{adapterID}/rotate", h.HandleRotateKey)
}

// HandleRegister handles POST /adapters requests. The response carries the
// cleartext API key exactly once.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.requireUser(w, ctx); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	adp, key, err := h.service.Register(ctx, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "adapter registration failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adapter client registered",
		"request_id", requestID,
		"adapter_id", adp.ID,
	)

	httputil.WriteJSON(w, http.StatusCreated, FromAdapterWithKey(adp, key))
}

// HandleRotateKey handles POST /adapters/{adapterID}/rotate requests.
func (h *Handler) HandleRotateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.requireUser(w, ctx); !ok {
		return
	}
	adapterID, ok := h.adapterIDFromPath(w, r)
	if !ok {
		return
	}

	adp, key, err := h.service.RotateKey(ctx, adapterID)
	if err != nil {
		h.logger.ErrorContext(ctx, "adapter key rotation failed",
			"request_id", requestID,
			"adapter_id", adapterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adapter key rotated",
		"request_id", requestID,
		"adapter_id", adapterID,
	)

	httputil.WriteJSON(w, http.StatusOK, FromAdapterWithKey(adp, key))
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) adapterIDFromPath(w http.ResponseWriter, r *http.Request) (id.AdapterID, bool) {
	adapterID, err := id.ParseAdapterID(chi.URLParam(r, "adapterID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid adapter id"))
		return id.AdapterID{}, false
	}
	return adapterID, true
}
