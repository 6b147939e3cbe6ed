package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default Gemini model
	DefaultGeminiModel = "gemini-2.5-flash-preview-05-20"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

// GeminiTransport calls the Gemini API through the Google Gen AI SDK
type GeminiTransport struct {
	client *genai.Client
}

// NewGeminiTransport creates a Gemini transport
func NewGeminiTransport(ctx context.Context, apiKey, baseURL string) (*GeminiTransport, error) {
	if apiKey == "" {
		return nil, ErrServiceUnconfigured
	}

	timeout := DefaultTimeout
	cfg := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{Timeout: &timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiTransport{client: client}, nil
}

// Generate sends one single-turn request with the persona as system instruction
func (t *GeminiTransport) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.Persona != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Persona, genai.RoleUser)
	}

	resp, err := t.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", geminiError(err)
	}

	return resp.Text(), nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return NewStatusError("gemini generate", apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return NewStatusError("gemini generate", apiErrPtr.Code, apiErrPtr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: "gemini generate", StatusCode: http.StatusGatewayTimeout, Err: err}
	}
	return &Error{Kind: KindUpstream, Op: "gemini generate", Err: err}
}

// RegisterGemini registers the Gemini provider with the registry
func RegisterGemini(registry *ProviderRegistry) {
	registry.Register("gemini", DefaultGeminiModel, func(ctx context.Context, cfg ProviderConfig) (Transport, error) {
		return NewGeminiTransport(ctx, cfg.APIKey, cfg.BaseURL)
	})
}
