package report

import (
	"sort"
	"strings"
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// Type discriminates report payload shapes. The presence family (presence,
// tax_residency) carries per-country totals and entries; the travel family
// (travel_summary, visa_compliance, custom) carries yearly aggregates and a
// timeline.
type Type string

const (
	TypePresence       Type = "presence"
	TypeTravelSummary  Type = "travel_summary"
	TypeTaxResidency   Type = "tax_residency"
	TypeVisaCompliance Type = "visa_compliance"
	TypeCustom         Type = "custom"
)

var knownTypes = map[Type]bool{
	TypePresence:       true,
	TypeTravelSummary:  true,
	TypeTaxResidency:   true,
	TypeVisaCompliance: true,
	TypeCustom:         true,
}

// ParseType constructs a Type from external input.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !knownTypes[t] {
		return "", dErrors.New(dErrors.CodeValidation,
			"report_type must be one of presence, travel_summary, tax_residency, visa_compliance, custom")
	}
	return t, nil
}

// Types lists every report type in a stable order.
func Types() []Type {
	return []Type{TypePresence, TypeTravelSummary, TypeTaxResidency, TypeVisaCompliance, TypeCustom}
}

// usesTravelShape reports whether the type carries the travel-family payload.
func (t Type) usesTravelShape() bool {
	return t == TypeTravelSummary || t == TypeVisaCompliance || t == TypeCustom
}

// Status tracks a stored report row.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of completed, failed")
	}
}

// DateRange bounds a report. Both ends are inclusive calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Parameters echoes the generation request so a report can be regenerated
// against fresh evidence later.
type Parameters struct {
	ReportType  Type     `json:"report_type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Countries   []string `json:"countries,omitempty"`
	Format      string   `json:"format,omitempty"`
}

// Report is the immutable composed output. Regeneration creates a new Report
// with a new id; rows are never mutated in place.
type Report struct {
	ID            id.ReportID `json:"id"`
	UserID        id.UserID   `json:"user_id"`
	Type          Type        `json:"report_type"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	DateRange     DateRange   `json:"date_range"`
	Countries     []string    `json:"countries,omitempty"`
	GeneratedAt   time.Time   `json:"generated_at"`
	Status        Status      `json:"status"`
	Summary       Summary     `json:"summary"`
	Detail        Detail      `json:"detail"`
	Disclaimers   []string    `json:"disclaimers,omitempty"`
	RawParameters Parameters  `json:"raw_parameters"`
}

// Summary is the tagged union of per-family headline numbers; exactly the
// member matching Report.Type's family is set.
type Summary struct {
	Presence *PresenceSummary `json:"presence,omitempty"`
	Travel   *TravelSummary   `json:"travel,omitempty"`
}

// Detail is the tagged union of per-family structured detail.
type Detail struct {
	Presence *PresenceDetail `json:"presence,omitempty"`
	Travel   *TravelDetail   `json:"travel,omitempty"`
}

// PresenceSummary heads presence and tax_residency reports.
type PresenceSummary struct {
	TotalCountries int `json:"total_countries"`
	TotalDays      int `json:"total_days"`
	TotalEntries   int `json:"total_entries"`
}

// PresenceDetail lists per-country totals and the day-by-day entries.
type PresenceDetail struct {
	CountryTotals map[string]int  `json:"country_totals"`
	Entries       []PresenceEntry `json:"entries"`
}

// PresenceEntry is one calendar day in a presence-family report. City and
// purpose surface from the evidence raw attributes when present.
type PresenceEntry struct {
	Date        string  `json:"date"`
	Country     string  `json:"country"`
	Confidence  float64 `json:"confidence"`
	Attribution string  `json:"attribution"`
	City        string  `json:"city,omitempty"`
	Purpose     string  `json:"purpose,omitempty"`
}

// TravelSummary heads travel_summary, visa_compliance and custom reports.
type TravelSummary struct {
	UniqueCountries int        `json:"unique_countries"`
	TotalDays       int        `json:"total_days"`
	YearRange       *YearRange `json:"year_range,omitempty"`
}

// YearRange is the inclusive span of years with at least one presence day.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TravelDetail carries yearly aggregates, the country ranking and the full
// chronological timeline.
type TravelDetail struct {
	ByYear    map[int]int    `json:"by_year"`
	ByCountry []CountryCount `json:"by_country"`
	Timeline  []TravelEntry  `json:"timeline"`
}

// CountryCount ranks one country by presence-day count.
type CountryCount struct {
	Country string `json:"country"`
	Days    int    `json:"days"`
}

// TravelEntry is one timeline row.
type TravelEntry struct {
	Date    string `json:"date"`
	Country string `json:"country"`
}

// ListQuery filters and pages a report listing for one user.
type ListQuery struct {
	UserID id.UserID
	Type   Type   // empty means all
	Status Status // empty means all
	Limit  int
	Offset int
}

// Page is one slice of a user's reports, newest generation first.
type Page struct {
	Items   []Report
	Limit   int
	Offset  int
	HasMore bool
}

// Template describes one report type for the catalog endpoint.
type Template struct {
	Type        Type     `json:"report_type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Disclaimers []string `json:"disclaimers,omitempty"`
}

// rankCountries orders totals descending by day count, ascending by country
// code on ties, so equal inputs always rank the same way.
func rankCountries(totals map[string]int) []CountryCount {
	ranked := make([]CountryCount, 0, len(totals))
	for country, days := range totals {
		ranked = append(ranked, CountryCount{Country: country, Days: days})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Days != ranked[j].Days {
			return ranked[i].Days > ranked[j].Days
		}
		return ranked[i].Country < ranked[j].Country
	})
	return ranked
}
