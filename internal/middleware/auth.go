package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/Azalea224/butler-service-backend/internal/services/auth"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to a user. *auth.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

var _ Authenticator = (*auth.Service)(nil)

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates bearer tokens
func Auth(authenticator Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
					return
				}
				logger.Error("authentication_lookup_failed", zap.Error(err))
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to authenticate request", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}
