package handler

import (
	"fmt"
	"strings"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const (
	maxFilenameLength = 255
	maxScanItems      = 250
)

// RegisterRequest is the HTTP request body for POST /artifacts.
type RegisterRequest struct {
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	Checksum    string `json:"checksum,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SourceKind  string `json:"source_kind"`

	// Parsed values (populated by Validate)
	parsedSourceKind id.SourceKind
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	var fields []string
	r.Filename = strings.TrimSpace(r.Filename)
	if r.Filename == "" {
		fields = append(fields, "filename")
	}
	if len(r.Filename) > maxFilenameLength {
		return dErrors.New(dErrors.CodeValidation, "filename must be at most 255 characters")
	}
	if r.SizeBytes < 0 {
		fields = append(fields, "size_bytes")
	}
	kind, err := id.ParseSourceKind(strings.TrimSpace(r.SourceKind))
	if err != nil {
		fields = append(fields, "source_kind")
	}
	if len(fields) > 0 {
		return dErrors.NewWithFields(dErrors.CodeValidation, "missing or invalid fields", fields)
	}
	r.parsedSourceKind = kind
	return nil
}

// ParsedSourceKind returns the validated source kind.
func (r *RegisterRequest) ParsedSourceKind() id.SourceKind {
	return r.parsedSourceKind
}

// ToInput converts the request to the service input shape.
func (r *RegisterRequest) ToInput() artifact.RegisterInput {
	return artifact.RegisterInput{
		Filename:    r.Filename,
		SizeBytes:   r.SizeBytes,
		Checksum:    strings.TrimSpace(r.Checksum),
		SourceURL:   strings.TrimSpace(r.SourceURL),
		ContentType: strings.TrimSpace(r.ContentType),
		SourceKind:  r.parsedSourceKind,
	}
}

// ScanRequest is the HTTP request body for POST /artifacts/scan.
type ScanRequest struct {
	Items []artifact.Descriptor `json:"items"`
}

// Validate implements the Validatable interface.
func (r *ScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Items) < 2 {
		return dErrors.New(dErrors.CodeValidation, "items must contain at least two descriptors")
	}
	if len(r.Items) > maxScanItems {
		return dErrors.New(dErrors.CodeValidation, "items must contain at most 250 descriptors")
	}

	var fields []string
	seen := make(map[string]bool, len(r.Items))
	for i := range r.Items {
		r.Items[i].ID = strings.TrimSpace(r.Items[i].ID)
		itemID := r.Items[i].ID
		switch {
		case itemID == "":
			fields = append(fields, fmt.Sprintf("items[%d].id", i))
		case seen[itemID]:
			fields = append(fields, fmt.Sprintf("items[%d].id", i))
		default:
			seen[itemID] = true
		}
	}
	if len(fields) > 0 {
		return dErrors.NewWithFields(dErrors.CodeValidation, "item ids must be present and unique", fields)
	}
	return nil
}
