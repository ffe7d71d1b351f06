package adapter

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// KeyVerifier validates a wire-form API key and returns the client it
// belongs to.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, rawKey string) (*Adapter, error)
}

// RequireKey rejects requests without a valid adapter API key and stores the
// adapter ID in the request context. Bearer-token traffic uses the auth
// middleware instead; routes accepting both compose the two.
func RequireKey(verifier KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rawKey := r.Header.Get(KeyHeader)
			if rawKey == "" {
				logger.WarnContext(ctx, "unauthorized adapter access - missing key",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing adapter key"))
				return
			}

			adp, err := verifier.VerifyKey(ctx, rawKey)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized adapter access - key rejected",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAdapterID(ctx, adp.ID)))
		})
	}
}
