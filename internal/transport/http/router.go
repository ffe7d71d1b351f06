// Package httptransport assembles the service router: middleware order,
// authentication boundaries, and per-feature route registration. Handlers
// own their endpoints; this package only decides who mounts where and behind
// which principal check.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	adapterhandler "github.com/eshbtc/travelcheck-sub000/internal/adapter/handler"
	artifacthandler "github.com/eshbtc/travelcheck-sub000/internal/artifact/handler"
	evidencehandler "github.com/eshbtc/travelcheck-sub000/internal/evidence/handler"
	platformmetrics "github.com/eshbtc/travelcheck-sub000/internal/platform/metrics"
	platformmw "github.com/eshbtc/travelcheck-sub000/internal/platform/middleware"
	presencehandler "github.com/eshbtc/travelcheck-sub000/internal/presence/handler"
	"github.com/eshbtc/travelcheck-sub000/internal/ratelimit"
	reporthandler "github.com/eshbtc/travelcheck-sub000/internal/report/handler"
	authmw "github.com/eshbtc/travelcheck-sub000/pkg/platform/middleware/auth"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/middleware/metadata"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/middleware/request"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. Nil optional fields disable
// their routes or middleware.
type Deps struct {
	Logger *slog.Logger

	TokenValidator  authmw.JWTValidator
	AdapterVerifier adapter.KeyVerifier
	IngestLimiter   ratelimit.Limiter

	Evidence  *evidencehandler.Handler
	Artifacts *artifacthandler.Handler
	Presence  *presencehandler.Handler
	Reports   *reporthandler.Handler
	Adapters  *adapterhandler.Handler

	HTTPMetrics *platformmetrics.HTTP
	Health      *HealthHandler
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}
	r.Use(platformmw.RequestLogging(deps.Logger))

	// Public surface.
	r.Handle("/metrics", promhttp.Handler())
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.HandleHealthz)
	}

	requireAuth := authmw.RequireAuth(deps.TokenValidator, deps.Logger)

	// Batch ingest accepts adapter keys as well as bearer tokens, and is the
	// only rate-limited surface.
	r.Group(func(r chi.Router) {
		r.Use(eitherPrincipal(requireAuth, deps.AdapterVerifier, deps.Logger))
		if deps.IngestLimiter != nil {
			r.Use(ratelimit.LimitIngest(deps.IngestLimiter, deps.Logger))
		}
		deps.Evidence.RegisterIngest(r)
	})

	// Everything else is bearer-only.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		deps.Evidence.Register(r)
		deps.Artifacts.Register(r)
		deps.Presence.Register(r)
		deps.Reports.Register(r)
		deps.Adapters.Register(r)
	})

	return r
}

// eitherPrincipal authenticates the request as an adapter client when the
// adapter key header is present, otherwise as a bearer user. The evidence
// handler decides per-principal semantics from the request context.
func eitherPrincipal(requireAuth func(http.Handler) http.Handler, verifier adapter.KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	requireKey := adapter.RequireKey(verifier, logger)
	return func(next http.Handler) http.Handler {
		bearer := requireAuth(next)
		key := requireKey(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(adapter.KeyHeader) != "" {
				key.ServeHTTP(w, r)
				return
			}
			bearer.ServeHTTP(w, r)
		})
	}
}
