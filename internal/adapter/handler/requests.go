package handler

import (
	"strings"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const maxNameLength = 128

// RegisterRequest is the HTTP request body for POST /adapters.
type RegisterRequest struct {
	Name string `json:"name"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.NewWithFields(dErrors.CodeValidation, "missing or invalid fields", []string{"name"})
	}
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	return nil
}
