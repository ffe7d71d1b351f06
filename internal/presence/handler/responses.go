package handler

import (
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/presence"
)

const dateLayout = "2006-01-02"

// DayResponse is the API shape of one reconciled presence day.
type DayResponse struct {
	Date        string             `json:"date"`
	Country     string             `json:"country"`
	Confidence  float64            `json:"confidence"`
	Attribution string             `json:"attribution"`
	Evidence    []string           `json:"evidence,omitempty"`
	Conflicts   []ConflictResponse `json:"conflicts,omitempty"`
	Attributes  map[string]string  `json:"attributes,omitempty"`
}

type ClaimResponse struct {
	Country    string  `json:"country"`
	Confidence float64 `json:"confidence"`
	SourceKind string  `json:"source_kind"`
}

type ConflictResponse struct {
	Date               string          `json:"date"`
	CompetingCountries []ClaimResponse `json:"competing_countries"`
	Severity           string          `json:"severity"`
}

// CalendarResponse is the payload for GET /presence/calendar.
type CalendarResponse struct {
	Days      []DayResponse `json:"days"`
	TotalDays int           `json:"total_days"`
}

type GapResponse struct {
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	LengthDays int     `json:"length_days"`
	Confidence float64 `json:"confidence"`
}

type RecommendationResponse struct {
	Priority  string `json:"priority"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// InsightsResponse is the payload for GET /presence/insights.
type InsightsResponse struct {
	Gaps            []GapResponse            `json:"gaps"`
	Conflicts       []ConflictResponse       `json:"conflicts"`
	Recommendations []RecommendationResponse `json:"recommendations"`
}

// SummaryResponse is the payload for GET /presence/summary.
type SummaryResponse struct {
	RangeStart      string         `json:"range_start,omitempty"`
	RangeEnd        string         `json:"range_end,omitempty"`
	TotalDays       int            `json:"total_days"`
	UniqueCountries int            `json:"unique_countries"`
	CountryDays     map[string]int `json:"country_days"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
	ConflictCount   int            `json:"conflict_count"`
	GapCount        int            `json:"gap_count"`
}

// FromDays converts a reconciled calendar to its response form.
func FromDays(days []presence.PresenceDay) CalendarResponse {
	out := make([]DayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, fromDay(d))
	}
	return CalendarResponse{Days: out, TotalDays: len(out)}
}

func fromDay(d presence.PresenceDay) DayResponse {
	return DayResponse{
		Date:        d.Date.Format(dateLayout),
		Country:     d.Country,
		Confidence:  d.Confidence,
		Attribution: d.Attribution,
		Evidence:    d.Evidence,
		Conflicts:   fromConflicts(d.Conflicts),
		Attributes:  d.Attributes,
	}
}

func fromConflicts(notes []presence.ConflictNote) []ConflictResponse {
	if len(notes) == 0 {
		return nil
	}
	out := make([]ConflictResponse, 0, len(notes))
	for _, n := range notes {
		claims := make([]ClaimResponse, 0, len(n.CompetingCountries))
		for _, c := range n.CompetingCountries {
			claims = append(claims, ClaimResponse{
				Country:    c.Country,
				Confidence: c.Confidence,
				SourceKind: c.SourceKind.String(),
			})
		}
		out = append(out, ConflictResponse{
			Date:               n.Date.Format(dateLayout),
			CompetingCountries: claims,
			Severity:           string(n.Severity),
		})
	}
	return out
}

// FromInsights converts analyzer output to its response form.
func FromInsights(in presence.Insights) InsightsResponse {
	gaps := make([]GapResponse, 0, len(in.Gaps))
	for _, g := range in.Gaps {
		gaps = append(gaps, GapResponse{
			StartDate:  g.StartDate.Format(dateLayout),
			EndDate:    g.EndDate.Format(dateLayout),
			LengthDays: g.LengthDays,
			Confidence: g.Confidence,
		})
	}
	recs := make([]RecommendationResponse, 0, len(in.Recommendations))
	for _, rec := range in.Recommendations {
		recs = append(recs, RecommendationResponse{
			Priority:  string(rec.Priority),
			Kind:      string(rec.Kind),
			Message:   rec.Message,
			StartDate: formatOptional(rec.StartDate),
			EndDate:   formatOptional(rec.EndDate),
		})
	}
	conflicts := fromConflicts(in.Conflicts)
	if conflicts == nil {
		conflicts = []ConflictResponse{}
	}
	return InsightsResponse{Gaps: gaps, Conflicts: conflicts, Recommendations: recs}
}

// FromSummary converts summary output to its response form.
func FromSummary(s presence.Summary) SummaryResponse {
	return SummaryResponse{
		RangeStart:      formatOptional(s.RangeStart),
		RangeEnd:        formatOptional(s.RangeEnd),
		TotalDays:       s.TotalDays,
		UniqueCountries: s.UniqueCountries,
		CountryDays:     s.CountryDays,
		SourceBreakdown: s.SourceBreakdown,
		ConflictCount:   s.ConflictCount,
		GapCount:        s.GapCount,
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
