// Package request holds helpers shared by middleware and handlers for
// reading per-request data: the authenticated user and the client IP.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/taskping/taskping/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// UserContextKey returns the context key the user is stored under.
// Exposed for tests that need to inject non-user values.
func UserContextKey() contextKey { return userContextKey }

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user attached to the request,
// or nil when the request is unauthenticated.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// ClientIP resolves the originating client address, preferring proxy
// headers over the socket peer. Used as the rate limiter key.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client; later entries are proxies.
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
