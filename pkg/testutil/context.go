package testutil

import (
	"net/http"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the
// bearer-token middleware does for authenticated requests. Invalid UUIDs
// are silently ignored so handlers see an unauthenticated request.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithAdapterID adds an adapter client ID to the request context, simulating
// what the adapter key middleware does. Invalid UUIDs are silently ignored.
func WithAdapterID(req *http.Request, adapterID string) *http.Request {
	if parsed, err := id.ParseAdapterID(adapterID); err == nil {
		return req.WithContext(requestcontext.WithAdapterID(req.Context(), parsed))
	}
	return req
}
