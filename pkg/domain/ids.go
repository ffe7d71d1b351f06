// Package domain holds shared domain primitives: typed identifiers and the
// evidence source taxonomy. Typed IDs make cross-entity assignment a compile
// error; construct them via the ParseX functions at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// Typed identifiers. Each is a distinct type over uuid.UUID so a ReportID
// can never be passed where an EvidenceID is expected.
type (
	// UserID identifies the principal who owns evidence and reports.
	UserID uuid.UUID

	// EvidenceID identifies a single normalized evidence record.
	EvidenceID uuid.UUID

	// ArtifactID identifies an uploaded artifact descriptor.
	ArtifactID uuid.UUID

	// ReportID identifies a generated report.
	ReportID uuid.UUID

	// AdapterID identifies a registered adapter client.
	AdapterID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseEvidenceID constructs an EvidenceID from external input.
func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s, "evidence id")
	return EvidenceID(u), err
}

// ParseArtifactID constructs an ArtifactID from external input.
func ParseArtifactID(s string) (ArtifactID, error) {
	u, err := parseUUID(s, "artifact id")
	return ArtifactID(u), err
}

// ParseReportID constructs a ReportID from external input.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report id")
	return ReportID(u), err
}

// ParseAdapterID constructs an AdapterID from external input.
func ParseAdapterID(s string) (AdapterID, error) {
	u, err := parseUUID(s, "adapter id")
	return AdapterID(u), err
}

// NewUserID generates a fresh UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEvidenceID generates a fresh EvidenceID.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// NewArtifactID generates a fresh ArtifactID.
func NewArtifactID() ArtifactID { return ArtifactID(uuid.New()) }

// NewReportID generates a fresh ReportID.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// NewAdapterID generates a fresh AdapterID.
func NewAdapterID() AdapterID { return AdapterID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id EvidenceID) String() string { return uuid.UUID(id).String() }
func (id ArtifactID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string   { return uuid.UUID(id).String() }
func (id AdapterID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ArtifactID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AdapterID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText make typed ids serialize as canonical UUID
// strings in JSON bodies and structured logs instead of raw byte arrays.

func (id UserID) MarshalText() ([]byte, error)     { return []byte(uuid.UUID(id).String()), nil }
func (id EvidenceID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }
func (id ArtifactID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }
func (id ReportID) MarshalText() ([]byte, error)   { return []byte(uuid.UUID(id).String()), nil }
func (id AdapterID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *EvidenceID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = EvidenceID(u)
	return nil
}

func (id *ArtifactID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ArtifactID(u)
	return nil
}

func (id *ReportID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ReportID(u)
	return nil
}

func (id *AdapterID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AdapterID(u)
	return nil
}
