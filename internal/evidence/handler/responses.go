package handler

import (
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
)

// RecordResponse mirrors one stored evidence record.
type RecordResponse struct {
	ID                   string            `json:"id"`
	SourceKind           string            `json:"source_kind"`
	Date                 string            `json:"date"`
	Country              string            `json:"country"`
	LowConfidenceCountry bool              `json:"low_confidence_country,omitempty"`
	Confidence           float64           `json:"confidence"`
	EvidenceRefs         []string          `json:"evidence_refs,omitempty"`
	RawAttributes        map[string]string `json:"raw_attributes,omitempty"`
	IngestedAt           time.Time         `json:"ingested_at"`
}

// RejectedRecordResponse names the batch position and field that sank one
// record.
type RejectedRecordResponse struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// IngestBatchResponse is the HTTP response for POST /evidence/batch.
type IngestBatchResponse struct {
	Accepted      []RecordResponse         `json:"accepted"`
	Rejected      []RejectedRecordResponse `json:"rejected"`
	AcceptedCount int                      `json:"accepted_count"`
	RejectedCount int                      `json:"rejected_count"`
}

// ListResponse is one page of evidence records for GET /evidence.
type ListResponse struct {
	Items   []RecordResponse `json:"items"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

// FromRecord converts a domain evidence record to its HTTP shape.
func FromRecord(rec evidence.EvidenceRecord) RecordResponse {
	return RecordResponse{
		ID:                   rec.ID.String(),
		SourceKind:           rec.SourceKind.String(),
		Date:                 rec.Date.Format("2006-01-02"),
		Country:              rec.Country,
		LowConfidenceCountry: rec.LowConfidenceCountry,
		Confidence:           rec.Confidence,
		EvidenceRefs:         rec.EvidenceRefs,
		RawAttributes:        rec.RawAttributes,
		IngestedAt:           rec.IngestedAt,
	}
}

// FromBatchResult converts an ingest outcome to its HTTP shape.
func FromBatchResult(result evidence.BatchResult) *IngestBatchResponse {
	resp := &IngestBatchResponse{
		Accepted:      make([]RecordResponse, 0, len(result.Accepted)),
		Rejected:      make([]RejectedRecordResponse, 0, len(result.Rejected)),
		AcceptedCount: len(result.Accepted),
		RejectedCount: len(result.Rejected),
	}
	for _, rec := range result.Accepted {
		resp.Accepted = append(resp.Accepted, FromRecord(rec))
	}
	for _, failure := range result.Rejected {
		resp.Rejected = append(resp.Rejected, RejectedRecordResponse{
			Index:  failure.Index,
			Field:  failure.Field,
			Reason: failure.Reason,
		})
	}
	return resp
}

// FromPage converts a domain page to its HTTP shape.
func FromPage(page evidence.Page) *ListResponse {
	items := make([]RecordResponse, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, FromRecord(rec))
	}
	return &ListResponse{
		Items:   items,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}
}
