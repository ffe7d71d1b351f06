package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/eshbtc/travelcheck-sub000/internal/report"
	"github.com/eshbtc/travelcheck-sub000/internal/report/handler/mocks"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/report-mocks.go -package=mocks Service

type ReportHandlerSuite struct {
	suite.Suite
}

func TestReportHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReportHandlerSuite))
}

func (s *ReportHandlerSuite) newTestHandler() (*chi.Mux, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *ReportHandlerSuite) do(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

func date(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t.UTC()
}

func sampleReport(userID id.UserID) report.Report {
	return report.Report{
		ID:     id.NewReportID(),
		UserID: userID,
		Type:   report.TypePresence,
		Title:  "Q1 presence",
		DateRange: report.DateRange{
			Start: date("2025-03-01"),
			End:   date("2025-03-31"),
		},
		GeneratedAt: date("2025-04-01"),
		Status:      report.StatusCompleted,
	}
}

func (s *ReportHandlerSuite) TestHandleGenerate() {
	userID := id.NewUserID()
	body := `{
		"report_type": "presence",
		"title": "Q1 presence",
		"start_date": "2025-03-01",
		"end_date": "2025-03-31"
	}`

	s.Run("generates and returns 201", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Generate(gomock.Any(), userID, gomock.Any()).
			DoAndReturn(func(_ any, _ id.UserID, input report.GenerateInput) (report.GenerateResult, error) {
				s.Equal(report.TypePresence, input.Type)
				s.Equal("Q1 presence", input.Title)
				s.Equal(date("2025-03-01"), input.StartDate)
				return report.GenerateResult{Report: sampleReport(userID), Persisted: true}, nil
			})

		req := asUser(httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader(body)), userID)
		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)

		var resp GenerateResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.True(resp.Persisted)
		s.Equal("Q1 presence", resp.Report.Title)
	})

	s.Run("unpersisted result still returns 201 with warnings", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Generate(gomock.Any(), userID, gomock.Any()).
			Return(report.GenerateResult{
				Report:    sampleReport(userID),
				Persisted: false,
				Warnings:  []string{"the report was generated but could not be saved; it will not appear in listings until regenerated"},
			}, nil)

		req := asUser(httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader(body)), userID)
		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)

		var resp GenerateResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.False(resp.Persisted)
		s.Len(resp.Warnings, 1)
	})

	s.Run("invalid body returns 400 before the service is called", func() {
		router, _ := s.newTestHandler()
		bad := `{"report_type": "weekly_digest", "title": "", "start_date": "March 1"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader(bad)), userID)
		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing principal returns 401", func() {
		router, _ := s.newTestHandler()
		req := httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader(body))
		w := s.do(router, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *ReportHandlerSuite) TestHandleList() {
	userID := id.NewUserID()

	s.Run("lists with filters and paging", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			List(gomock.Any(), report.ListQuery{
				UserID: userID,
				Type:   report.TypePresence,
				Status: report.StatusCompleted,
				Limit:  10,
				Offset: 20,
			}).
			Return(report.Page{
				Items:   []report.Report{sampleReport(userID)},
				Limit:   10,
				Offset:  20,
				HasMore: false,
			}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet,
			"/reports?report_type=presence&status=completed&limit=10&offset=20", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)

		var resp ListResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Items, 1)
		s.False(resp.HasMore)
	})

	s.Run("empty page serializes as an empty array", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			List(gomock.Any(), gomock.Any()).
			Return(report.Page{Limit: 50}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"items":[]`)
	})

	s.Run("bad filter returns 400", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodGet, "/reports?report_type=weekly_digest", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *ReportHandlerSuite) TestHandleGet() {
	userID := id.NewUserID()

	s.Run("returns the stored report", func() {
		router, mockService := s.newTestHandler()
		stored := sampleReport(userID)
		mockService.EXPECT().
			Get(gomock.Any(), userID, stored.ID).
			Return(&stored, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/"+stored.ID.String(), nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)

		var resp report.Report
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(stored.ID, resp.ID)
	})

	s.Run("unknown report returns 404", func() {
		router, mockService := s.newTestHandler()
		reportID := id.NewReportID()
		mockService.EXPECT().
			Get(gomock.Any(), userID, reportID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "report not found"))

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/"+reportID.String(), nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed id returns 400", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/not-a-uuid", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *ReportHandlerSuite) TestHandleDelete() {
	userID := id.NewUserID()
	reportID := id.NewReportID()

	s.Run("deletes and returns 204", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Delete(gomock.Any(), userID, reportID).
			Return(nil)

		req := asUser(httptest.NewRequest(http.MethodDelete, "/reports/"+reportID.String(), nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("unknown report returns 404", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Delete(gomock.Any(), userID, reportID).
			Return(dErrors.New(dErrors.CodeNotFound, "report not found"))

		req := asUser(httptest.NewRequest(http.MethodDelete, "/reports/"+reportID.String(), nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *ReportHandlerSuite) TestHandleRegenerate() {
	userID := id.NewUserID()
	sourceID := id.NewReportID()

	router, mockService := s.newTestHandler()
	regenerated := sampleReport(userID)
	mockService.EXPECT().
		Regenerate(gomock.Any(), userID, sourceID).
		Return(report.GenerateResult{Report: regenerated, Persisted: true}, nil)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reports/"+sourceID.String()+"/regenerate", nil), userID)
	w := s.do(router, req)
	s.Equal(http.StatusCreated, w.Code)

	var resp GenerateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(regenerated.ID, resp.Report.ID)
}

func (s *ReportHandlerSuite) TestHandleExport() {
	userID := id.NewUserID()
	reportID := id.NewReportID()

	s.Run("serves the rendered artifact", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Export(gomock.Any(), userID, reportID, "csv").
			Return(report.Artifact{
				Bytes:       []byte("date,country\n2025-03-01,FR\n"),
				ContentType: "text/csv",
				Filename:    "q1-presence.csv",
				Format:      report.FormatDelimited,
			}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/"+reportID.String()+"/export?format=csv", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)

		var resp ExportResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("text/csv", resp.ContentType)
		s.Equal("q1-presence.csv", resp.Filename)
		s.Equal(len(resp.Data), resp.Size)
		s.Contains(string(resp.Data), "2025-03-01,FR")
	})

	s.Run("empty format falls through to the service default", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Export(gomock.Any(), userID, reportID, "").
			Return(report.Artifact{Bytes: []byte("{}"), ContentType: "application/json", Format: report.FormatStructured}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/"+reportID.String()+"/export", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("unsupported format maps to 400", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Export(gomock.Any(), userID, reportID, "xlsx").
			Return(report.Artifact{}, dErrors.New(dErrors.CodeUnsupportedFormat, "format must be one of structured (json), delimited (csv), plain_text (txt), document (pdf)"))

		req := asUser(httptest.NewRequest(http.MethodGet, "/reports/"+reportID.String()+"/export?format=xlsx", nil), userID)
		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *ReportHandlerSuite) TestHandleTemplates() {
	router, mockService := s.newTestHandler()
	mockService.EXPECT().
		Templates(gomock.Any()).
		Return(report.Catalog())

	// Templates are a catalog, not user data; no principal required.
	req := httptest.NewRequest(http.MethodGet, "/reports/templates", nil)
	w := s.do(router, req)
	s.Equal(http.StatusOK, w.Code)

	var resp TemplatesResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Templates, len(report.Types()))
}
