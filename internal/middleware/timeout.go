package middleware

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout bounds ordinary requests
	DefaultRequestTimeout = 30 * time.Second
	// ModelRequestTimeout bounds requests that wait on the model; it leaves room
	// for the transport's own deadline plus persistence.
	ModelRequestTimeout = 45 * time.Second
)

const timeoutBody = `{"success":false,"error":"Request Timeout","message":"The request took too long to complete"}`

// Timeout cancels the request context after timeout and answers 503 with a JSON body
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			w.Header().Set("Content-Type", "application/json")
			http.TimeoutHandler(next, timeout, timeoutBody).ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
