// Package request carries per-request values shared by middleware and handlers.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// ClientIP returns the originating client address without a port. The first
// X-Forwarded-For hop wins, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
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

// SubjectKey identifies who a request is charged to: the authenticated user when
// there is one, otherwise the client IP.
func SubjectKey(r *http.Request) string {
	if user := UserFromContext(r); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + ClientIP(r)
}

// WithUser returns a context with the user attached.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user from the request context, or nil if missing.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}
