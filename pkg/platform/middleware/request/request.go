// Package request provides middleware that assigns every request a stable
// identifier, honoring an inbound X-Request-ID so IDs correlate across hops.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// HeaderName is the canonical request ID header, read and echoed.
const HeaderName = "X-Request-ID"

// Middleware extracts or generates the request ID, stores it in the context,
// and echoes it on the response so clients can quote it in bug reports.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderName)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderName, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
// Deprecated: Use requestcontext.RequestID(ctx) instead.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
