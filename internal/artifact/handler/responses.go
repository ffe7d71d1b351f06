package handler

import (
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
)

// ArtifactResponse mirrors one stored descriptor.
type ArtifactResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	Checksum     string    `json:"checksum,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	SourceKind   string    `json:"source_kind"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegisterResponse is the HTTP response for POST /artifacts. Duplicates are
// warnings, not rejections; the artifact is stored either way.
type RegisterResponse struct {
	Artifact   ArtifactResponse          `json:"artifact"`
	Duplicates []artifact.DuplicateGroup `json:"duplicates,omitempty"`
}

// ScanResponse is the HTTP response for POST /artifacts/scan.
type ScanResponse struct {
	Groups []artifact.DuplicateGroup `json:"groups"`
}

// ListResponse is the HTTP response for GET /artifacts.
type ListResponse struct {
	Items []ArtifactResponse `json:"items"`
}

// FromArtifact converts a domain artifact to its HTTP shape.
func FromArtifact(a artifact.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:           a.ID.String(),
		Filename:     a.Filename,
		SizeBytes:    a.SizeBytes,
		Checksum:     a.Checksum,
		SourceURL:    a.SourceURL,
		ContentType:  a.ContentType,
		SourceKind:   a.SourceKind.String(),
		RegisteredAt: a.RegisteredAt,
	}
}

// FromArtifacts converts a descriptor list to its HTTP shape.
func FromArtifacts(artifacts []artifact.Artifact) *ListResponse {
	items := make([]ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, FromArtifact(a))
	}
	return &ListResponse{Items: items}
}
