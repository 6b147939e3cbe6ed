package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure of the generative model call so callers can pick a retry policy
type Kind string

const (
	KindServiceUnconfigured Kind = "service_unconfigured"
	KindAuth                Kind = "auth_error"
	KindRateLimited         Kind = "rate_limited"
	KindModelUnavailable    Kind = "model_unavailable"
	KindUpstream            Kind = "upstream_error"
	KindTimeout             Kind = "timeout"
)

// ErrServiceUnconfigured is returned when no model credential is configured
var ErrServiceUnconfigured = errors.New("AI service is not configured")

// Error represents a failed model invocation
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	RetryAfter *time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindForStatus maps an upstream HTTP status to an error kind
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusNotFound:
		return KindModelUnavailable
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUpstream
	}
}

// NewStatusError builds an Error from an upstream status code
func NewStatusError(op string, status int, message string, err error) *Error {
	e := &Error{
		Kind:       KindForStatus(status),
		Op:         op,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
	if e.Kind == KindRateLimited {
		retryAfter := 60 * time.Second
		e.RetryAfter = &retryAfter
	}
	return e
}

// KindOf returns the kind of err, or "" when err is not a model invocation error
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	if errors.Is(err, ErrServiceUnconfigured) {
		return KindServiceUnconfigured
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ""
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return KindOf(err) == KindRateLimited
}

// IsRetryable reports whether a later attempt may succeed. Only rate limits and timeouts qualify.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}

// GetRetryDelay calculates the delay before retrying based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	// Cap the shift so the multiplication cannot overflow
	var shift uint
	switch {
	case attempt <= 0:
		shift = 0
	case attempt > 10:
		shift = 10
	default:
		shift = uint(attempt)
	}

	if IsRateLimitError(err) {
		// Rate limit errors: exponential backoff starting at 60 seconds
		delay := 60 * time.Second * time.Duration(1<<shift)
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}

		var aiErr *Error
		if errors.As(err, &aiErr) && aiErr.RetryAfter != nil && *aiErr.RetryAfter > delay {
			delay = *aiErr.RetryAfter
		}
		return delay
	}

	// Default: exponential backoff starting at 5 seconds
	delay := 5 * time.Second * time.Duration(1<<shift)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}
