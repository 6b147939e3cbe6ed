package middleware

import (
	"fmt"
	"net/http"

	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// DefaultAIRate is the per-user rate for routes that call the model
const DefaultAIRate = "20-M"

// UserRateLimit limits requests per authenticated user. It must run after Auth; requests
// without a user fall back to the client IP.
func UserRateLimit(store limiter.Store, formattedRate string, log *zap.Logger) (func(http.Handler) http.Handler, error) {
	if formattedRate == "" {
		formattedRate = DefaultAIRate
	}
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("invalid AI rate limit %q: %w", formattedRate, err)
	}

	return newLimiterMiddleware(limiter.New(store, rate), request.SubjectKey, log).Handler, nil
}
