// Package httputil centralizes HTTP encoding, decoding, and error mapping.
//
// Handlers never set status codes for failures themselves: they pass errors
// to WriteError, which maps domain error codes to HTTP statuses in exactly
// one place. Error bodies follow the {"error", "error_description"} shape;
// internal errors deliberately omit the description so infrastructure
// details never leak to clients.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; evidence batches are bounded well below
// this and anything larger is abuse.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request types that validate and parse
// themselves after JSON decoding.
type Validatable interface {
	Validate() error
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Fields           []string `json:"fields,omitempty"`
}

// statusForCode maps domain error codes to HTTP status codes.
var statusForCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:        http.StatusBadRequest,
	dErrors.CodeValidation:        http.StatusBadRequest,
	dErrors.CodeUnsupportedFormat: http.StatusBadRequest,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodeForbidden:         http.StatusForbidden,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeConflict:          http.StatusConflict,
	dErrors.CodeTimeout:           http.StatusGatewayTimeout,
	dErrors.CodeUnavailable:       http.StatusServiceUnavailable,
	dErrors.CodeContractViolation: http.StatusInternalServerError,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// Encoding failures at this point cannot be reported to the client; the
	// status line is already written.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to an HTTP status and writes the standard error body.
// Errors without a domain code are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	msg := ""
	var fields []string

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code()
		msg = de.Message()
		fields = de.Fields()
	}

	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	// Internal errors (and contract violations, which are server defects)
	// never expose their description.
	if status != http.StatusInternalServerError {
		body.ErrorDescription = msg
		body.Fields = fields
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into v, limiting body size and
// translating malformed payloads to bad_request.
func DecodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "request body is not valid JSON")
	}
	return nil
}

// DecodeAndPrepare decodes the request body into a fresh T and runs its
// Validate method. On any failure it writes the error response itself and
// returns ok=false; handlers just return.
//
// Usage:
//
//	req, ok := httputil.DecodeAndPrepare[GenerateRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	var v T
	req := PT(&v)

	if err := DecodeJSON(r, req); err != nil {
		logger.WarnContext(ctx, "request decode failed",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}

	return req, true
}
