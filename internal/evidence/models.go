package evidence

import (
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
)

// SourceRecord is the adapter-shaped claim as it arrives, before any
// normalization. Every field is untrusted text until Normalize accepts it.
type SourceRecord struct {
	SourceKind    string            `json:"source_kind"`
	Date          string            `json:"date"`
	Country       string            `json:"country"`
	Confidence    *float64          `json:"confidence,omitempty"`
	EvidenceRefs  []string          `json:"evidence_refs,omitempty"`
	RawAttributes map[string]string `json:"raw_attributes,omitempty"`
}

// EvidenceRecord is one atomic, source-attributed claim that the user was in
// a country on a calendar day.
//
// Invariants:
//   - Date is a valid day (never the zero value, never defaulted to "now")
//   - Country is non-empty; unresolved names stay verbatim with
//     LowConfidenceCountry set
//   - Confidence is within [0,1]
//   - Records are immutable once ingested; confirmations and disputes append
//     new manual records referencing the original in EvidenceRefs
type EvidenceRecord struct {
	ID                   id.EvidenceID     `json:"id"`
	UserID               id.UserID         `json:"user_id"`
	SourceKind           id.SourceKind     `json:"source_kind"`
	Date                 time.Time         `json:"date"`
	Country              string            `json:"country"`
	LowConfidenceCountry bool              `json:"low_confidence_country,omitempty"`
	Confidence           float64           `json:"confidence"`
	EvidenceRefs         []string          `json:"evidence_refs,omitempty"`
	RawAttributes        map[string]string `json:"raw_attributes,omitempty"`
	IngestedAt           time.Time         `json:"ingested_at"`
}

// Day returns the record's date truncated to midnight UTC. All grouping and
// range math runs on this value so records from sources in different zones
// land on the same calendar day.
func (r EvidenceRecord) Day() time.Time {
	return time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordFailure reports one rejected record from a batch. Index points back
// into the submitted slice so the adapter can correlate and retry.
type RecordFailure struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// BatchResult carries the per-record outcome of a normalization pass. A batch
// never fails wholesale: bad records land in Rejected, the rest proceed.
type BatchResult struct {
	Accepted []EvidenceRecord
	Rejected []RecordFailure
}

// ListQuery filters and pages an evidence listing for one user.
type ListQuery struct {
	UserID id.UserID
	From   time.Time // zero means unbounded
	To     time.Time // zero means unbounded
	Limit  int
	Offset int
}

// Page is one slice of a user's evidence, newest ingest first.
type Page struct {
	Items   []EvidenceRecord
	Limit   int
	Offset  int
	HasMore bool
}
