package presence

import (
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
)

// AttributionMerged marks a winning claim backed by two or more distinct
// source kinds.
const AttributionMerged = "merged"

// PresenceDay is the reconciled unit: exactly one per calendar date that has
// at least one evidence record. A date with zero evidence has no PresenceDay
// at all; absence is the lack of a record, never a record of absence.
type PresenceDay struct {
	Date        time.Time         `json:"date"`
	Country     string            `json:"country"`
	Confidence  float64           `json:"confidence"`
	Attribution string            `json:"attribution"`
	Evidence    []string          `json:"evidence,omitempty"`
	Conflicts   []ConflictNote    `json:"conflicts,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// CompetingClaim is one country's candidacy for a contested day.
type CompetingClaim struct {
	Country    string        `json:"country"`
	Confidence float64       `json:"confidence"`
	SourceKind id.SourceKind `json:"source_kind"`
}

// ConflictSeverity grades how close a contested day was.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// ConflictNote records a day where sources disagreed on the country.
// Severity derives from the confidence gap between the top two candidates.
type ConflictNote struct {
	Date               time.Time        `json:"date"`
	CompetingCountries []CompetingClaim `json:"competing_countries"`
	Severity           ConflictSeverity `json:"severity"`
}

// Gap is a maximal run of consecutive dates with no PresenceDay inside the
// analysis window. Confidence estimates how likely the gap is unevidenced
// travel rather than simple non-travel.
type Gap struct {
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	LengthDays int       `json:"length_days"`
	Confidence float64   `json:"confidence"`
}

// RecommendationPriority orders what the user should fix first.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// RecommendationKind names the suggested action.
type RecommendationKind string

const (
	RecommendUploadEvidence  RecommendationKind = "upload_evidence"
	RecommendResolveConflict RecommendationKind = "resolve_conflict"
)

// Recommendation is one human-actionable suggestion derived from the
// calendar's gaps and conflicts.
type Recommendation struct {
	Priority  RecommendationPriority `json:"priority"`
	Kind      RecommendationKind     `json:"kind"`
	Message   string                 `json:"message"`
	StartDate *time.Time             `json:"start_date,omitempty"`
	EndDate   *time.Time             `json:"end_date,omitempty"`
}

// Insights is the analyzer's full output for one calendar.
type Insights struct {
	Gaps            []Gap            `json:"gaps"`
	Conflicts       []ConflictNote   `json:"conflicts"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Summary condenses a calendar into headline numbers.
type Summary struct {
	RangeStart      *time.Time     `json:"range_start,omitempty"`
	RangeEnd        *time.Time     `json:"range_end,omitempty"`
	TotalDays       int            `json:"total_days"`
	UniqueCountries int            `json:"unique_countries"`
	CountryDays     map[string]int `json:"country_days"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
	ConflictCount   int            `json:"conflict_count"`
	GapCount        int            `json:"gap_count"`
}
