// Package middleware carries HTTP middleware owned by the service shell.
// Principal-attribution middleware lives in pkg/platform/middleware; this
// package holds what is specific to this deployment.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// RequestLogging logs one line per request with method, path, status and
// duration. Health and metrics probes are skipped to keep logs readable.
func RequestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			ctx := r.Context()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
			}
			if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.HasTraceID() {
				attrs = append(attrs, "trace_id", spanCtx.TraceID().String())
			}
			logger.InfoContext(ctx, "http request", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
