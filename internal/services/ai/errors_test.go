package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestKindForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusNotFound, KindModelUnavailable},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusBadGateway, KindUpstream},
		{0, KindUpstream},
	}
	for _, tt := range tests {
		if got := KindForStatus(tt.status); got != tt.want {
			t.Errorf("KindForStatus(%d): expected %s, got %s", tt.status, tt.want, got)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("consult: %w", NewStatusError("op", http.StatusTooManyRequests, "slow", nil))
	if KindOf(err) != KindRateLimited {
		t.Errorf("Expected wrapped rate limit kind, got %s", KindOf(err))
	}
	if !IsRateLimitError(err) {
		t.Error("Expected IsRateLimitError to be true")
	}
	if KindOf(errors.New("other")) != "" {
		t.Error("Expected empty kind for unrelated error")
	}
	if KindOf(nil) != "" {
		t.Error("Expected empty kind for nil")
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !IsRetryable(&Error{Kind: KindRateLimited}) {
		t.Error("Expected rate limit to be retryable")
	}
	if !IsRetryable(&Error{Kind: KindTimeout}) {
		t.Error("Expected timeout to be retryable")
	}
	for _, k := range []Kind{KindAuth, KindModelUnavailable, KindUpstream, KindServiceUnconfigured} {
		if IsRetryable(&Error{Kind: k}) {
			t.Errorf("Expected %s not to be retryable", k)
		}
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	rateLimited := NewStatusError("op", http.StatusTooManyRequests, "slow", nil)
	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{"rate limit first attempt", rateLimited, 0, 60 * time.Second},
		{"rate limit second attempt", rateLimited, 1, 120 * time.Second},
		{"rate limit capped", rateLimited, 10, 15 * time.Minute},
		{"generic first attempt", errors.New("x"), 0, 5 * time.Second},
		{"generic capped", errors.New("x"), 20, 5 * time.Minute},
		{"negative attempt", errors.New("x"), -4, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("Expected redacted, got %q", got)
	}
	if got := SanitizeAPIKey("abcd1234567890wxyz"); got != "abcd"+RedactedValue+"wxyz" {
		t.Errorf("Unexpected sanitized key %q", got)
	}
}
