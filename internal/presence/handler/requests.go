package handler

import (
	"net/http"
	"strings"
	"time"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// maxCountryFilters bounds the countries query parameter; anything larger is
// a malformed request, not a real filter.
const maxCountryFilters = 50

// presenceQuery carries the parsed parameters shared by the presence
// endpoints. Zero From/To mean an open bound.
type presenceQuery struct {
	From      time.Time
	To        time.Time
	Countries []string
}

// parsePresenceQuery reads from/to/countries, collecting every invalid
// parameter so the caller can fix them all in one pass. The countries
// parameter accepts both repetition and comma-separated values.
func parsePresenceQuery(r *http.Request) (presenceQuery, error) {
	var q presenceQuery
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
	for _, raw := range params["countries"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Countries = append(q.Countries, part)
			}
		}
	}
	if len(q.Countries) > maxCountryFilters {
		fields = append(fields, "countries")
	}
	if len(fields) > 0 {
		return q, dErrors.NewWithFields(dErrors.CodeValidation, "invalid query parameters", fields)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, dErrors.NewWithFields(dErrors.CodeValidation, "to must not be before from", []string{"from", "to"})
	}
	return q, nil
}
