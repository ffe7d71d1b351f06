package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshbtc/travelcheck-sub000/internal/report"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Service defines the interface for report operations.
type Service interface {
	Generate(ctx context.Context, userID id.UserID, input report.GenerateInput) (report.GenerateResult, error)
	Get(ctx context.Context, userID id.UserID, reportID id.ReportID) (*report.Report, error)
	List(ctx context.Context, q report.ListQuery) (report.Page, error)
	Delete(ctx context.Context, userID id.UserID, reportID id.ReportID) error
	Regenerate(ctx context.Context, userID id.UserID, reportID id.ReportID) (report.GenerateResult, error)
	Export(ctx context.Context, userID id.UserID, reportID id.ReportID, format string) (report.Artifact, error)
	Templates(ctx context.Context) []report.Template
}

// Handler wires report endpoints to the report service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a report handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts report endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reports/generate", h.HandleGenerate)
	r.Get("/reports", h.HandleList)
	r.Get("/reports/templates", h.HandleTemplates)
	r.Get("/reports/{reportID}", h.HandleGet)
	r.Delete("/reports/{reportID}", h.HandleDelete)
	r.Post("/reports/{reportID}/regenerate", h.HandleRegenerate)
	r.Get("/reports/{reportID}/export", h.HandleExport)
}

// HandleGenerate handles POST /reports/generate requests.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GenerateReportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Generate(ctx, userID, req.ParsedInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "report generation failed",
			"request_id", requestID,
			"user_id", userID,
			"report_type", req.ReportType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report generated",
		"request_id", requestID,
		"user_id", userID,
		"report_id", result.Report.ID,
		"report_type", result.Report.Type,
		"persisted", result.Persisted,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromGenerateResult(result))
}

// HandleList handles GET /reports requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	q, err := parseReportListQuery(r, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid report list query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "report list failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// HandleTemplates handles GET /reports/templates requests.
func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, TemplatesResponse{
		Templates: h.service.Templates(r.Context()),
	})
}

// HandleGet handles GET /reports/{reportID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	reportID, ok := h.reportIDFromPath(w, r)
	if !ok {
		return
	}

	stored, err := h.service.Get(ctx, userID, reportID)
	if err != nil {
		h.logger.ErrorContext(ctx, "report fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stored)
}

// HandleDelete handles DELETE /reports/{reportID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	reportID, ok := h.reportIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, userID, reportID); err != nil {
		h.logger.ErrorContext(ctx, "report deletion failed",
			"request_id", requestID,
			"user_id", userID,
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report deleted",
		"request_id", requestID,
		"user_id", userID,
		"report_id", reportID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerate handles POST /reports/{reportID}/regenerate requests.
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	reportID, ok := h.reportIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.service.Regenerate(ctx, userID, reportID)
	if err != nil {
		h.logger.ErrorContext(ctx, "report regeneration failed",
			"request_id", requestID,
			"user_id", userID,
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report regenerated",
		"request_id", requestID,
		"user_id", userID,
		"source_report_id", reportID,
		"report_id", result.Report.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromGenerateResult(result))
}

// HandleExport handles GET /reports/{reportID}/export requests.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	reportID, ok := h.reportIDFromPath(w, r)
	if !ok {
		return
	}

	artifact, err := h.service.Export(ctx, userID, reportID, r.URL.Query().Get("format"))
	if err != nil {
		h.logger.ErrorContext(ctx, "report export failed",
			"request_id", requestID,
			"user_id", userID,
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report export served",
		"request_id", requestID,
		"user_id", userID,
		"report_id", reportID,
		"format", artifact.Format,
		"bytes", len(artifact.Bytes),
	)

	httputil.WriteJSON(w, http.StatusOK, FromArtifact(artifact))
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) reportIDFromPath(w http.ResponseWriter, r *http.Request) (id.ReportID, bool) {
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "report id must be a valid UUID"))
		return id.ReportID{}, false
	}
	return reportID, true
}
