package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/report"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const (
	defaultListLimit     = 50
	maxListLimit         = 200
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxCountryFilters    = 50
)

// GenerateReportRequest is the HTTP request body for POST /reports/generate.
type GenerateReportRequest struct {
	ReportType  string   `json:"report_type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Countries   []string `json:"countries,omitempty"`
	Format      string   `json:"format,omitempty"`

	// Parsed values (populated by Validate)
	parsed report.GenerateInput
}

// Validate validates and parses the request, collecting every missing or
// invalid field so the caller can fix them all in one pass.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *GenerateReportRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	var fields []string

	r.ReportType = strings.TrimSpace(r.ReportType)
	if r.ReportType == "" {
		fields = append(fields, "report_type")
	} else if parsed, err := report.ParseType(r.ReportType); err != nil {
		fields = append(fields, "report_type")
	} else {
		r.parsed.Type = parsed
	}

	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" || len(r.Title) > maxTitleLength {
		fields = append(fields, "title")
	} else {
		r.parsed.Title = r.Title
	}

	r.Description = strings.TrimSpace(r.Description)
	if len(r.Description) > maxDescriptionLength {
		fields = append(fields, "description")
	} else {
		r.parsed.Description = r.Description
	}

	if day, ok := parseDateField(r.StartDate); !ok {
		fields = append(fields, "start_date")
	} else {
		r.parsed.StartDate = day
	}
	if day, ok := parseDateField(r.EndDate); !ok {
		fields = append(fields, "end_date")
	} else {
		r.parsed.EndDate = day
	}

	if len(r.Countries) > maxCountryFilters {
		fields = append(fields, "countries")
	} else {
		r.parsed.Countries = r.Countries
	}

	r.Format = strings.TrimSpace(r.Format)
	if r.Format != "" {
		if _, err := report.ParseFormat(r.Format); err != nil {
			fields = append(fields, "format")
		} else {
			r.parsed.Format = r.Format
		}
	}

	if len(fields) > 0 {
		return dErrors.NewWithFields(dErrors.CodeValidation, "missing or invalid report parameters", fields)
	}
	if r.parsed.EndDate.Before(r.parsed.StartDate) {
		return dErrors.NewWithFields(dErrors.CodeValidation, "end_date precedes start_date", []string{"start_date", "end_date"})
	}
	return nil
}

// ParsedInput returns the validated generation input.
func (r *GenerateReportRequest) ParsedInput() report.GenerateInput {
	return r.parsed
}

func parseDateField(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return day.UTC(), true
}

// parseReportListQuery reads report_type/status/limit/offset for GET /reports.
func parseReportListQuery(r *http.Request, userID id.UserID) (report.ListQuery, error) {
	q := report.ListQuery{UserID: userID, Limit: defaultListLimit}
	params := r.URL.Query()

	var fields []string
	if raw := params.Get("report_type"); raw != "" {
		parsed, err := report.ParseType(raw)
		if err != nil {
			fields = append(fields, "report_type")
		} else {
			q.Type = parsed
		}
	}
	if raw := params.Get("status"); raw != "" {
		parsed, err := report.ParseStatus(raw)
		if err != nil {
			fields = append(fields, "status")
		} else {
			q.Status = parsed
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
	return q, nil
}
