package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	"github.com/eshbtc/travelcheck-sub000/internal/evidence/handler/mocks"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/evidence-mocks.go -package=mocks Service

type EvidenceHandlerSuite struct {
	suite.Suite
}

func TestEvidenceHandlerSuite(t *testing.T) {
	suite.Run(t, new(EvidenceHandlerSuite))
}

func (s *EvidenceHandlerSuite) newTestHandler() (*chi.Mux, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	h := New(mockService, logger)
	h.Register(r)
	h.RegisterIngest(r)
	return r, mockService
}

func (s *EvidenceHandlerSuite) do(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(req *http.Request, userID id.UserID) *http.Request {
	return testutil.WithUserID(req, userID.String())
}

func asAdapter(req *http.Request, adapterID id.AdapterID) *http.Request {
	return testutil.WithAdapterID(req, adapterID.String())
}

func sampleRecord(day time.Time) evidence.EvidenceRecord {
	return evidence.EvidenceRecord{
		ID:         id.NewEvidenceID(),
		SourceKind: id.SourcePassportStamp,
		Date:       day,
		Country:    "FR",
		Confidence: 0.85,
		IngestedAt: day.Add(12 * time.Hour),
	}
}

// =============================================================================
// POST /evidence/batch
// =============================================================================

func (s *EvidenceHandlerSuite) TestHandleIngestBatch() {
	userID := id.NewUserID()

	s.Run("bearer call ingests under the token subject", func() {
		router, mockService := s.newTestHandler()
		day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		mockService.EXPECT().
			Ingest(gomock.Any(), userID, gomock.Len(1)).
			Return(evidence.BatchResult{Accepted: []evidence.EvidenceRecord{sampleRecord(day)}}, nil)

		body := `{"records":[{"source_kind":"passport_stamp","date":"2024-03-01","country":"FR"}]}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)

		var resp IngestBatchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(1, resp.AcceptedCount)
		s.Equal(0, resp.RejectedCount)
		s.Equal("FR", resp.Accepted[0].Country)
		s.Equal("2024-03-01", resp.Accepted[0].Date)
	})

	s.Run("adapter call requires user_id in the body", func() {
		router, _ := s.newTestHandler()
		body := `{"records":[{"source_kind":"passport_stamp","date":"2024-03-01","country":"FR"}]}`
		req := asAdapter(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body)), id.NewAdapterID())

		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("adapter call with user_id lands under that user", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Ingest(gomock.Any(), userID, gomock.Any()).
			Return(evidence.BatchResult{}, nil)

		body := fmt.Sprintf(`{"user_id":%q,"records":[{"source_kind":"manual","date":"2024-03-02","country":"DE"}]}`, userID)
		req := asAdapter(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body)), id.NewAdapterID())

		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("bearer call with a different body user_id is forbidden", func() {
		router, _ := s.newTestHandler()
		body := fmt.Sprintf(`{"user_id":%q,"records":[{"source_kind":"manual","date":"2024-03-02","country":"DE"}]}`, id.NewUserID())
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unauthenticated call is rejected", func() {
		router, _ := s.newTestHandler()
		body := `{"records":[{"source_kind":"manual","date":"2024-03-02","country":"DE"}]}`
		req := httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body))

		w := s.do(router, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("empty records array is a validation error", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(`{"records":[]}`)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("service errors map through the error writer", func() {
		router, mockService := s.newTestHandler()
		mockService.EXPECT().
			Ingest(gomock.Any(), userID, gomock.Any()).
			Return(evidence.BatchResult{}, dErrors.New(dErrors.CodeInternal, "storage down"))

		body := `{"records":[{"source_kind":"manual","date":"2024-03-02","country":"DE"}]}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/batch", bytes.NewBufferString(body)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusInternalServerError, w.Code)
	})
}

// =============================================================================
// GET /evidence
// =============================================================================

func (s *EvidenceHandlerSuite) TestHandleList() {
	userID := id.NewUserID()

	s.Run("passes range and pagination through to the service", func() {
		router, mockService := s.newTestHandler()
		day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		mockService.EXPECT().
			List(gomock.Any(), evidence.ListQuery{
				UserID: userID,
				From:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				To:     time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
				Limit:  10,
				Offset: 20,
			}).
			Return(evidence.Page{Items: []evidence.EvidenceRecord{sampleRecord(day)}, Limit: 10, Offset: 20}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/evidence?from=2024-05-01&to=2024-05-31&limit=10&offset=20", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusOK, w.Code)

		var resp ListResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Items, 1)
		s.Equal(10, resp.Limit)
		s.False(resp.HasMore)
	})

	s.Run("collects every invalid query parameter", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodGet, "/evidence?from=bogus&limit=-2", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)

		var resp struct {
			Error  string   `json:"error"`
			Fields []string `json:"fields"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("validation_error", resp.Error)
		s.ElementsMatch([]string{"from", "limit"}, resp.Fields)
	})

	s.Run("inverted range is rejected", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodGet, "/evidence?from=2024-05-31&to=2024-05-01", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("requires a bearer user", func() {
		router, _ := s.newTestHandler()
		req := httptest.NewRequest(http.MethodGet, "/evidence", nil)

		w := s.do(router, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

// =============================================================================
// POST /evidence/{id}/confirm and /dispute
// =============================================================================

func (s *EvidenceHandlerSuite) TestHandleConfirm() {
	userID := id.NewUserID()

	s.Run("confirms with an empty body", func() {
		router, mockService := s.newTestHandler()
		evidenceID := id.NewEvidenceID()
		derived := sampleRecord(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		mockService.EXPECT().
			Confirm(gomock.Any(), userID, evidenceID, "").
			Return(&derived, nil)

		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/"+evidenceID.String()+"/confirm", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("passes the note through", func() {
		router, mockService := s.newTestHandler()
		evidenceID := id.NewEvidenceID()
		derived := sampleRecord(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		mockService.EXPECT().
			Confirm(gomock.Any(), userID, evidenceID, "checked my passport").
			Return(&derived, nil)

		body := `{"note":"checked my passport"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/"+evidenceID.String()+"/confirm", bytes.NewBufferString(body)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("malformed evidence id is rejected before the service", func() {
		router, _ := s.newTestHandler()
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/not-a-uuid/confirm", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown evidence id maps to 404", func() {
		router, mockService := s.newTestHandler()
		evidenceID := id.NewEvidenceID()
		mockService.EXPECT().
			Confirm(gomock.Any(), userID, evidenceID, "").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "evidence record not found"))

		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/"+evidenceID.String()+"/confirm", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *EvidenceHandlerSuite) TestHandleDispute() {
	userID := id.NewUserID()

	s.Run("passes the corrected country through", func() {
		router, mockService := s.newTestHandler()
		evidenceID := id.NewEvidenceID()
		derived := sampleRecord(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
		mockService.EXPECT().
			Dispute(gomock.Any(), userID, evidenceID, evidence.Dispute{Country: "FR", Note: "wrong country"}).
			Return(&derived, nil)

		body := `{"country":"FR","note":"wrong country"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/"+evidenceID.String()+"/dispute", bytes.NewBufferString(body)), userID)

		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("disputes with an empty body", func() {
		router, mockService := s.newTestHandler()
		evidenceID := id.NewEvidenceID()
		derived := sampleRecord(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
		mockService.EXPECT().
			Dispute(gomock.Any(), userID, evidenceID, evidence.Dispute{}).
			Return(&derived, nil)

		req := asUser(httptest.NewRequest(http.MethodPost, "/evidence/"+evidenceID.String()+"/dispute", nil), userID)

		w := s.do(router, req)
		s.Equal(http.StatusCreated, w.Code)
	})
}
