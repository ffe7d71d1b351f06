// Package adapter manages the machine clients that push evidence batches:
// passport OCR pipelines, mailbox parsers, bulk importers. Each client
// authenticates with an API key whose plaintext is shown exactly once; only
// a bcrypt hash is stored.
package adapter

import (
	"strings"
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// KeyHeader carries the adapter API key on ingest requests.
const KeyHeader = "X-Adapter-Key"

// Status is the lifecycle state of an adapter client. Inactive clients keep
// their history but fail key verification.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Adapter is the aggregate root for a registered machine client.
//
// Invariants:
//   - Name is non-empty, at most 128 characters, unique across clients
//   - KeyHash is a bcrypt hash, never the plaintext key
//   - Status is either active or inactive
type Adapter struct {
	ID        id.AdapterID `json:"id"`
	Name      string       `json:"name"`
	KeyHash   string       `json:"-"`
	Status    Status       `json:"status"`
	CreatedBy id.UserID    `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	RotatedAt *time.Time   `json:"rotated_at,omitempty"`
}

// NewAdapter constructs an active adapter client, validating invariants.
func NewAdapter(adapterID id.AdapterID, name, keyHash string, createdBy id.UserID, now time.Time) (*Adapter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "adapter name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "adapter name must be 128 characters or less")
	}
	if keyHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "adapter key hash cannot be empty")
	}
	return &Adapter{
		ID:        adapterID,
		Name:      name,
		KeyHash:   keyHash,
		Status:    StatusActive,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *Adapter) IsActive() bool {
	return a.Status == StatusActive
}

// ComposeKey builds the wire form of an API key: the adapter ID joined to
// the secret with a dot, so verification can locate the hash in one lookup.
func ComposeKey(adapterID id.AdapterID, secret string) string {
	return adapterID.String() + "." + secret
}

// SplitKey separates a wire-form key into adapter ID and secret. UUIDs never
// contain dots, so the first dot is the boundary.
func SplitKey(raw string) (id.AdapterID, string, error) {
	idPart, secret, found := strings.Cut(raw, ".")
	if !found || secret == "" {
		return id.AdapterID{}, "", dErrors.New(dErrors.CodeUnauthorized, "malformed adapter key")
	}
	adapterID, err := id.ParseAdapterID(idPart)
	if err != nil {
		return id.AdapterID{}, "", dErrors.New(dErrors.CodeUnauthorized, "malformed adapter key")
	}
	return adapterID, secret, nil
}
