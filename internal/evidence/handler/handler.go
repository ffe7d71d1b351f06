package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Service defines the interface for evidence operations.
type Service interface {
	Ingest(ctx context.Context, userID id.UserID, batch []evidence.SourceRecord) (evidence.BatchResult, error)
	List(ctx context.Context, q evidence.ListQuery) (evidence.Page, error)
	Confirm(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID, note string) (*evidence.EvidenceRecord, error)
	Dispute(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID, dispute evidence.Dispute) (*evidence.EvidenceRecord, error)
}

// Handler wires evidence endpoints to the evidence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evidence handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the bearer-authenticated evidence endpoints. Batch ingest
// mounts separately because it also accepts adapter keys and carries the
// ingest rate limit.
func (h *Handler) Register(r chi.Router) {
	r.Get("/evidence", h.HandleList)
	r.Post("/evidence/{evidenceID}/confirm", h.HandleConfirm)
	r.Post("/evidence/{evidenceID}/dispute", h.HandleDispute)
}

// RegisterIngest mounts the batch ingest endpoint.
func (h *Handler) RegisterIngest(r chi.Router) {
	r.Post("/evidence/batch", h.HandleIngestBatch)
}

// HandleIngestBatch handles POST /evidence/batch requests.
func (h *Handler) HandleIngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IngestBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userID, err := h.resolveSubject(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Ingest(ctx, userID, req.Records)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence ingest failed",
			"request_id", requestID,
			"user_id", userID,
			"batch_size", len(req.Records),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence batch ingested",
		"request_id", requestID,
		"user_id", userID,
		"accepted", len(result.Accepted),
		"rejected", len(result.Rejected),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromBatchResult(result))
}

// HandleList handles GET /evidence requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	q, err := parseListQuery(r, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid evidence list query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence list failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// HandleConfirm handles POST /evidence/{evidenceID}/confirm requests.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	evidenceID, ok := h.evidenceIDFromPath(w, r)
	if !ok {
		return
	}

	var req ConfirmRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	derived, err := h.service.Confirm(ctx, userID, evidenceID, req.Note)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence confirmation failed",
			"request_id", requestID,
			"user_id", userID,
			"evidence_id", evidenceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence confirmed",
		"request_id", requestID,
		"user_id", userID,
		"evidence_id", evidenceID,
	)

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(*derived))
}

// HandleDispute handles POST /evidence/{evidenceID}/dispute requests.
func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	evidenceID, ok := h.evidenceIDFromPath(w, r)
	if !ok {
		return
	}

	var req DisputeRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	derived, err := h.service.Dispute(ctx, userID, evidenceID, evidence.Dispute{
		Country: req.Country,
		Note:    req.Note,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence dispute failed",
			"request_id", requestID,
			"user_id", userID,
			"evidence_id", evidenceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence disputed",
		"request_id", requestID,
		"user_id", userID,
		"evidence_id", evidenceID,
	)

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(*derived))
}

// resolveSubject picks the user a batch lands under. Bearer calls use the
// token subject and must not smuggle a different user_id; adapter calls have
// no token subject and must name the user in the body.
func (h *Handler) resolveSubject(ctx context.Context, req *IngestBatchRequest) (id.UserID, error) {
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		if bodyUser := req.ParsedUserID(); !bodyUser.IsNil() && bodyUser != userID {
			return id.UserID{}, dErrors.New(dErrors.CodeForbidden, "user_id does not match the authenticated user")
		}
		return userID, nil
	}
	if adapterID := requestcontext.AdapterID(ctx); !adapterID.IsNil() {
		if req.ParsedUserID().IsNil() {
			return id.UserID{}, dErrors.New(dErrors.CodeValidation, "user_id is required for adapter submissions")
		}
		return req.ParsedUserID(), nil
	}
	return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) evidenceIDFromPath(w http.ResponseWriter, r *http.Request) (id.EvidenceID, bool) {
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "evidence id must be a valid UUID"))
		return id.EvidenceID{}, false
	}
	return evidenceID, true
}

// decodeOptional decodes a request body when one is present. Confirm and
// dispute are valid with no body at all.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, req httputil.Validatable) bool {
	if r.Body != nil && r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, req); err != nil {
			httputil.WriteError(w, err)
			return false
		}
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	return true
}
