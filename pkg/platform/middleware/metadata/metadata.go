// Package metadata extracts client-identifying request details (IP address,
// User-Agent) early in the middleware chain so handlers, services, and the
// audit pipeline read them from context instead of from *http.Request.
package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// ClientMetadata extracts the client IP and User-Agent from the request and
// adds them to the context, along with a parsed breakdown of the User-Agent.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		rawUA := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, rawUA)
		ctx = requestcontext.WithClientInfo(ctx, parseUserAgent(rawUA))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseUserAgent breaks the raw header down for audit events. Adapter
// clients and scripts show up as bots or empty browsers, which is exactly
// what compliance reviews want to see.
func parseUserAgent(raw string) requestcontext.ClientInfo {
	if raw == "" {
		return requestcontext.ClientInfo{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return requestcontext.ClientInfo{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// GetClientIP retrieves the client IP address from the context.
// Deprecated: Use requestcontext.ClientIP(ctx) instead.
func GetClientIP(ctx context.Context) string {
	return requestcontext.ClientIP(ctx)
}

// GetUserAgent retrieves the User-Agent from the context.
// Deprecated: Use requestcontext.UserAgent(ctx) instead.
func GetUserAgent(ctx context.Context) string {
	return requestcontext.UserAgent(ctx)
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// Check X-Forwarded-For header first (standard for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		// Take the first IP which is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header (used by nginx and other proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (direct connection)
	// RemoteAddr is in format "ip:port", so we need to strip the port
	if addr := r.RemoteAddr; addr != "" {
		// For IPv6, format is [::1]:port
		// For IPv4, format is 127.0.0.1:port
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
