package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockTransport is a test double recording every call
type mockTransport struct {
	GenerateFunc func(ctx context.Context, req GenerateRequest) (string, error)
	calls        []GenerateRequest
}

func (m *mockTransport) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	m.calls = append(m.calls, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "", nil
}

var _ Transport = (*mockTransport)(nil)

func TestClient_Invoke_MissingCredential(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{}
	client := NewClient(transport, ClientConfig{Model: "m"})

	_, err := client.Invoke(context.Background(), TemplateRecommendation, "prompt")
	if KindOf(err) != KindServiceUnconfigured {
		t.Fatalf("Expected kind %s, got %v", KindServiceUnconfigured, err)
	}
	if !errors.Is(err, ErrServiceUnconfigured) {
		t.Error("Expected error to wrap ErrServiceUnconfigured")
	}
	if len(transport.calls) != 0 {
		t.Errorf("Expected zero transport calls, got %d", len(transport.calls))
	}
}

func TestClient_Invoke_NilTransport(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, ClientConfig{Credential: "key"})
	if client.Configured() {
		t.Error("Expected client without transport to be unconfigured")
	}
	if _, err := client.Invoke(context.Background(), TemplateChat, "hi"); KindOf(err) != KindServiceUnconfigured {
		t.Errorf("Expected kind %s, got %v", KindServiceUnconfigured, err)
	}
}

func TestClient_Invoke_Settings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		template        Template
		wantTemperature float64
		wantMaxTokens   int
	}{
		{TemplateRecommendation, 0.7, 500},
		{TemplateParse, 0.3, 300},
		{TemplateChat, 0.8, 500},
		{TemplateMoodAnalysis, 0.3, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.template), func(t *testing.T) {
			t.Parallel()
			transport := &mockTransport{
				GenerateFunc: func(_ context.Context, _ GenerateRequest) (string, error) {
					return "reply", nil
				},
			}
			client := NewClient(transport, ClientConfig{Credential: "key", Model: "test-model", Persona: "persona"})

			text, err := client.Invoke(context.Background(), tt.template, "prompt")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if text != "reply" {
				t.Errorf("Expected 'reply', got %q", text)
			}
			if len(transport.calls) != 1 {
				t.Fatalf("Expected one transport call, got %d", len(transport.calls))
			}
			req := transport.calls[0]
			if req.Temperature != tt.wantTemperature || req.MaxTokens != tt.wantMaxTokens {
				t.Errorf("Expected %v/%d, got %v/%d", tt.wantTemperature, tt.wantMaxTokens, req.Temperature, req.MaxTokens)
			}
			if req.Model != "test-model" || req.Prompt != "prompt" {
				t.Errorf("Unexpected request %+v", req)
			}
			wantPersona := "persona"
			if tt.template == TemplateMoodAnalysis {
				wantPersona = ""
			}
			if req.Persona != wantPersona {
				t.Errorf("Expected persona %q, got %q", wantPersona, req.Persona)
			}
		})
	}
}

func TestClient_Invoke_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"401", NewStatusError("x", http.StatusUnauthorized, "bad key", nil), KindAuth},
		{"403", NewStatusError("x", http.StatusForbidden, "denied", nil), KindAuth},
		{"429", NewStatusError("x", http.StatusTooManyRequests, "slow down", nil), KindRateLimited},
		{"404", NewStatusError("x", http.StatusNotFound, "no model", nil), KindModelUnavailable},
		{"500", NewStatusError("x", http.StatusInternalServerError, "boom", nil), KindUpstream},
		{"plain error", errors.New("connection reset"), KindUpstream},
		{"deadline", context.DeadlineExceeded, KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			transport := &mockTransport{
				GenerateFunc: func(_ context.Context, _ GenerateRequest) (string, error) {
					return "", tt.err
				},
			}
			client := NewClient(transport, ClientConfig{Credential: "key"})

			_, err := client.Invoke(context.Background(), TemplateRecommendation, "prompt")
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("Expected kind %s, got %s (%v)", tt.wantKind, got, err)
			}
		})
	}
}

func TestClient_Invoke_CallerDeadline(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{
		GenerateFunc: func(ctx context.Context, _ GenerateRequest) (string, error) {
			<-ctx.Done()
			return "", errors.New("request aborted")
		},
	}
	client := NewClient(transport, ClientConfig{Credential: "key"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Invoke(ctx, TemplateChat, "hi")
	if KindOf(err) != KindTimeout {
		t.Errorf("Expected kind %s, got %v", KindTimeout, err)
	}
}

func TestClient_Invoke_UnknownTemplate(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{}
	client := NewClient(transport, ClientConfig{Credential: "key"})

	if _, err := client.Invoke(context.Background(), Template("poetry"), "x"); err == nil {
		t.Error("Expected error for unknown template")
	}
	if len(transport.calls) != 0 {
		t.Errorf("Expected zero transport calls, got %d", len(transport.calls))
	}
}
