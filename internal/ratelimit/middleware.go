package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eshbtc/travelcheck-sub000/pkg/platform/httputil"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Limiter is the check surface the middleware needs.
type Limiter interface {
	CheckIngest(ctx context.Context, principal string) *Result
}

// LimitIngest throttles batch submissions per principal. Must run after the
// auth middlewares so the adapter or user identity is already in context.
func LimitIngest(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			result := limiter.CheckIngest(ctx, principalKey(ctx))
			writeRateLimitHeaders(w, result)

			if !result.Allowed {
				logger.WarnContext(ctx, "ingest rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"reset_at", result.ResetAt,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds(requestcontext.Now(ctx))))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":   "rate_limited",
					"message": "ingest rate limit exceeded, retry later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// principalKey buckets requests by the strongest identity available:
// adapter, then user, then client IP.
func principalKey(ctx context.Context) string {
	if adapterID := requestcontext.AdapterID(ctx); !adapterID.IsNil() {
		return "adapter:" + adapterID.String()
	}
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return "user:" + userID.String()
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

func writeRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}
