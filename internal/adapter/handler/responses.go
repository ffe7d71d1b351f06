package handler

import (
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
)

// AdapterResponse mirrors one adapter client. Key is populated only on
// registration and rotation responses; it is not recoverable later.
type AdapterResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Key       string     `json:"key,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
}

// FromAdapterWithKey converts a client plus its one-time cleartext key.
func FromAdapterWithKey(adp *adapter.Adapter, key string) AdapterResponse {
	return AdapterResponse{
		ID:        adp.ID.String(),
		Name:      adp.Name,
		Status:    string(adp.Status),
		Key:       key,
		CreatedAt: adp.CreatedAt,
		UpdatedAt: adp.UpdatedAt,
		RotatedAt: adp.RotatedAt,
	}
}
