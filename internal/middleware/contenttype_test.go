package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{"GET passes", http.MethodGet, "", "", http.StatusOK},
		{"JSON body", http.MethodPost, `{"message":"hi"}`, "application/json", http.StatusOK},
		{"JSON with charset", http.MethodPatch, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"bodiless POST", http.MethodPost, "", "", http.StatusOK},
		{"missing header", http.MethodPost, `{}`, "", http.StatusBadRequest},
		{"form body", http.MethodPut, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"json lookalike", http.MethodPost, `{}`, "application/jsonp", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := ContentType(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, "/api/v1/tasks", nil)
			} else {
				req = httptest.NewRequest(tt.method, "/api/v1/tasks", strings.NewReader(tt.body))
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	handler := MaxRequestSize(8, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SecurityHeaders(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if w.Header().Get(h) == "" {
			t.Errorf("Expected header %s", h)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("Expected no HSTS over plain http")
	}
}
