package artifact

import (
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
)

// Artifact is the descriptor of an uploaded evidence source (a passport
// scan, a forwarded booking email). The blob itself lives in external
// storage; the engine only ever sees these cheap pre-normalization signals,
// which is all duplicate detection needs.
type Artifact struct {
	ID           id.ArtifactID `json:"id"`
	UserID       id.UserID     `json:"user_id"`
	Filename     string        `json:"filename"`
	SizeBytes    int64         `json:"size_bytes"`
	Checksum     string        `json:"checksum,omitempty"`
	SourceURL    string        `json:"source_url,omitempty"`
	ContentType  string        `json:"content_type,omitempty"`
	SourceKind   id.SourceKind `json:"source_kind"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// Descriptor is the similarity signal the detector scores. Registered
// artifacts and ad-hoc scan payloads both reduce to this shape; ID is opaque
// to the detector.
type Descriptor struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum,omitempty"`
}

// DescriptorOf reduces a stored artifact to its detector signal.
func DescriptorOf(a Artifact) Descriptor {
	return Descriptor{
		ID:        a.ID.String(),
		Filename:  a.Filename,
		SizeBytes: a.SizeBytes,
		Checksum:  a.Checksum,
	}
}

// MatchKind classifies how alike a qualifying pair or group is.
type MatchKind string

const (
	MatchIdentical MatchKind = "identical"
	MatchSimilar   MatchKind = "similar"
)

// Match is one qualifying pair. LeftID sorts before RightID so output is
// stable regardless of input order.
type Match struct {
	LeftID  string    `json:"left_id"`
	RightID string    `json:"right_id"`
	Score   float64   `json:"score"`
	Kind    MatchKind `json:"kind"`
}

// DuplicateGroup is a connected set of likely-redundant items. Groups are
// advisory: the engine never deletes anything on the caller's behalf, it
// only points.
type DuplicateGroup struct {
	Kind    MatchKind `json:"kind"`
	Score   float64   `json:"score"`
	ItemIDs []string  `json:"item_ids"`
	Matches []Match   `json:"matches"`
}
