package evidence

import (
	"math"
	"strings"
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	platstrings "github.com/eshbtc/travelcheck-sub000/pkg/platform/strings"
)

// dateLayouts are the shapes adapters actually send. Day-first slash dates
// win over month-first when both readings are possible.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
}

// Defaults carries the per-source confidence applied when a source omits its
// own score. Manual entries default to 1.0: a person asserting their own
// presence is treated as ground truth.
type Defaults struct {
	PassportStamp float64
	EmailBooking  float64
	Manual        float64
}

// Normalizer turns raw adapter payloads into EvidenceRecords. It rejects per
// record, never per batch, and it never substitutes the current date for an
// unparsable one — a defaulted date would silently corrupt the calendar.
type Normalizer struct {
	defaults Defaults
}

func NewNormalizer(defaults Defaults) *Normalizer {
	return &Normalizer{defaults: defaults}
}

// Normalize validates and converts a batch. Accepted records carry the given
// owner and ingest time; rejected ones are reported with their input index so
// the adapter can correlate and retry.
func (n *Normalizer) Normalize(userID id.UserID, batch []SourceRecord, now time.Time) BatchResult {
	result := BatchResult{}
	for i, raw := range batch {
		record, failure := n.normalizeOne(userID, raw, now)
		if failure != nil {
			failure.Index = i
			result.Rejected = append(result.Rejected, *failure)
			continue
		}
		result.Accepted = append(result.Accepted, record)
	}
	return result
}

func (n *Normalizer) normalizeOne(userID id.UserID, raw SourceRecord, now time.Time) (EvidenceRecord, *RecordFailure) {
	kind, err := id.ParseSourceKind(strings.TrimSpace(raw.SourceKind))
	if err != nil {
		return EvidenceRecord{}, &RecordFailure{Field: "source_kind", Reason: "must be one of passport_stamp, email_booking, manual"}
	}

	dateField := strings.TrimSpace(raw.Date)
	if dateField == "" {
		return EvidenceRecord{}, &RecordFailure{Field: "date", Reason: "date is required"}
	}
	day, ok := parseDay(dateField)
	if !ok {
		return EvidenceRecord{}, &RecordFailure{Field: "date", Reason: "unparsable date, expected YYYY-MM-DD, RFC3339, DD/MM/YYYY, or '2 Jan 2006'"}
	}

	if strings.TrimSpace(raw.Country) == "" {
		return EvidenceRecord{}, &RecordFailure{Field: "country", Reason: "country is required"}
	}
	country, lowConfidence := resolveCountry(raw.Country)

	return EvidenceRecord{
		ID:                   id.NewEvidenceID(),
		UserID:               userID,
		SourceKind:           kind,
		Date:                 day,
		Country:              country,
		LowConfidenceCountry: lowConfidence,
		Confidence:           n.confidenceFor(kind, raw.Confidence),
		EvidenceRefs:         cleanRefs(raw.EvidenceRefs),
		RawAttributes:        copyAttributes(raw.RawAttributes),
		IngestedAt:           now,
	}, nil
}

// parseDay tries each supported layout and truncates the result to midnight
// UTC so all downstream grouping runs on calendar days.
func parseDay(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// confidenceFor resolves the effective confidence. Negative and NaN scores
// are treated as absent; anything above 1 clamps down to 1.
func (n *Normalizer) confidenceFor(kind id.SourceKind, reported *float64) float64 {
	v := n.defaultFor(kind)
	if reported != nil && !math.IsNaN(*reported) && *reported >= 0 {
		v = *reported
	}
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func (n *Normalizer) defaultFor(kind id.SourceKind) float64 {
	switch kind {
	case id.SourcePassportStamp:
		return n.defaults.PassportStamp
	case id.SourceEmailBooking:
		return n.defaults.EmailBooking
	default:
		return n.defaults.Manual
	}
}

// cleanRefs trims and dedupes adapter-supplied references; adapters routinely
// send the same attachment id on every record of a batch.
func cleanRefs(refs []string) []string {
	out := platstrings.DedupeAndTrim(refs)
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyAttributes(attributes map[string]string) map[string]string {
	if len(attributes) == 0 {
		return nil
	}
	out := make(map[string]string, len(attributes))
	for k, v := range attributes {
		out[k] = v
	}
	return out
}
