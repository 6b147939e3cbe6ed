package middleware

import (
	"net/http"

	logpkg "github.com/Azalea224/butler-service-backend/internal/logger"
	"github.com/Azalea224/butler-service-backend/internal/request"
	"go.uber.org/zap"
)

// Audit logs security-related events for monitoring
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
			}

			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				logger.Warn("security_event", append(fields, zap.Int("status_code", wrapped.statusCode))...)
			case http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation", fields...)
			}
		})
	}
}
