package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxNoteLength    = 1000
	maxCountryLength = 100
)

// IngestBatchRequest is the HTTP request body for POST /evidence/batch.
// user_id is only honored on adapter-authenticated calls; bearer calls take
// the subject from the token.
type IngestBatchRequest struct {
	UserID  string                  `json:"user_id,omitempty"`
	Records []evidence.SourceRecord `json:"records"`

	// Parsed values (populated by Validate)
	parsedUserID id.UserID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
// Per-record problems are not validated here: the normalizer rejects bad
// records individually so the rest of the batch still lands.
func (r *IngestBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Records) == 0 {
		return dErrors.New(dErrors.CodeValidation, "records array must not be empty")
	}
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID != "" {
		userID, err := id.ParseUserID(r.UserID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "user_id must be a valid UUID")
		}
		r.parsedUserID = userID
	}
	return nil
}

// ParsedUserID returns the validated user id, zero when absent.
func (r *IngestBatchRequest) ParsedUserID() id.UserID {
	return r.parsedUserID
}

// ConfirmRequest is the optional HTTP request body for
// POST /evidence/{id}/confirm.
type ConfirmRequest struct {
	Note string `json:"note,omitempty"`
}

// Validate implements the Validatable interface.
func (r *ConfirmRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.Note = strings.TrimSpace(r.Note)
	if len(r.Note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 1000 characters")
	}
	return nil
}

// DisputeRequest is the optional HTTP request body for
// POST /evidence/{id}/dispute. Country asserts where the user actually was.
type DisputeRequest struct {
	Country string `json:"country,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Validate implements the Validatable interface.
func (r *DisputeRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.Country = strings.TrimSpace(r.Country)
	if len(r.Country) > maxCountryLength {
		return dErrors.New(dErrors.CodeValidation, "country must be at most 100 characters")
	}
	r.Note = strings.TrimSpace(r.Note)
	if len(r.Note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 1000 characters")
	}
	return nil
}

// parseListQuery reads from/to/limit/offset for GET /evidence, collecting
// every invalid parameter so the caller can fix them all in one pass.
func parseListQuery(r *http.Request, userID id.UserID) (evidence.ListQuery, error) {
	q := evidence.ListQuery{UserID: userID, Limit: defaultListLimit}
	params := r.URL.Query()

	var fields []string
	if raw := params.Get("from"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields = append(fields, "from")
		} else {
			q.From = day.UTC()
		}
	}
	if raw := params.Get("to"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields = append(fields, "to")
		} else {
			q.To = day.UTC()
		}
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			fields = append(fields, "limit")
		} else {
			q.Limit = n
		}
	}
	if raw := params.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields = append(fields, "offset")
		} else {
			q.Offset = n
		}
	}
	if len(fields) > 0 {
		return q, dErrors.NewWithFields(dErrors.CodeValidation, "invalid query parameters", fields)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	return q, nil
}
