package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Service defines the interface for artifact operations.
type Service interface {
	Register(ctx context.Context, userID id.UserID, input artifact.RegisterInput) (*artifact.Artifact, []artifact.DuplicateGroup, error)
	Scan(ctx context.Context, userID id.UserID, items []artifact.Descriptor) ([]artifact.DuplicateGroup, error)
	List(ctx context.Context, userID id.UserID) ([]artifact.Artifact, error)
	Delete(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) error
}

// Handler wires artifact endpoints to the artifact service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an artifact handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts artifact endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/artifacts", h.HandleRegister)
	r.Post("/artifacts/scan", h.HandleScan)
	r.Get("/artifacts", h.HandleList)
	r.Delete("/artifacts/{artifactID}", h.HandleDelete)
}

// HandleRegister handles POST /artifacts requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, groups, err := h.service.Register(ctx, userID, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "artifact registration failed",
			"request_id", requestID,
			"user_id", userID,
			"filename", req.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "artifact registered",
		"request_id", requestID,
		"user_id", userID,
		"artifact_id", created.ID,
		"duplicate_groups", len(groups),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{
		Artifact:   FromArtifact(*created),
		Duplicates: groups,
	})
}

// HandleScan handles POST /artifacts/scan requests.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	groups, err := h.service.Scan(ctx, userID, req.Items)
	if err != nil {
		h.logger.ErrorContext(ctx, "duplicate scan failed",
			"request_id", requestID,
			"user_id", userID,
			"items", len(req.Items),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if groups == nil {
		groups = []artifact.DuplicateGroup{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ScanResponse{Groups: groups})
}

// HandleList handles GET /artifacts requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	artifacts, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "artifact list failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromArtifacts(artifacts))
}

// HandleDelete handles DELETE /artifacts/{artifactID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	artifactID, err := id.ParseArtifactID(chi.URLParam(r, "artifactID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "artifact id must be a valid UUID"))
		return
	}

	if err := h.service.Delete(ctx, userID, artifactID); err != nil {
		h.logger.ErrorContext(ctx, "artifact deletion failed",
			"request_id", requestID,
			"user_id", userID,
			"artifact_id", artifactID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "artifact deleted",
		"request_id", requestID,
		"user_id", userID,
		"artifact_id", artifactID,
	)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
