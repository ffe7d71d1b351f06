package handler

import (
	"github.com/eshbtc/travelcheck-sub000/internal/report"
)

// The report document itself goes over the wire exactly as composed; its JSON
// shape is the canonical one that storage and the structured export share.
// Only the envelopes are handler-specific.

// GenerateResponse is the HTTP response for POST /reports/generate and
// POST /reports/{id}/regenerate.
type GenerateResponse struct {
	Report    report.Report `json:"report"`
	Persisted bool          `json:"persisted"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// FromGenerateResult converts a service result to the HTTP response.
func FromGenerateResult(result report.GenerateResult) GenerateResponse {
	return GenerateResponse{
		Report:    result.Report,
		Persisted: result.Persisted,
		Warnings:  result.Warnings,
	}
}

// ListResponse is the HTTP response for GET /reports.
type ListResponse struct {
	Items   []report.Report `json:"items"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
}

// FromPage converts a service page to the HTTP response.
func FromPage(page report.Page) ListResponse {
	items := page.Items
	if items == nil {
		items = []report.Report{}
	}
	return ListResponse{
		Items:   items,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}
}

// TemplatesResponse is the HTTP response for GET /reports/templates.
type TemplatesResponse struct {
	Templates []report.Template `json:"templates"`
}

// ExportResponse is the HTTP response for GET /reports/{id}/export. Data is
// the rendered artifact; encoding/json base64s it on the wire.
type ExportResponse struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
}

// FromArtifact converts a rendered export to the HTTP response.
func FromArtifact(artifact report.Artifact) ExportResponse {
	return ExportResponse{
		Data:        artifact.Bytes,
		ContentType: artifact.ContentType,
		Filename:    artifact.Filename,
		Size:        len(artifact.Bytes),
	}
}
