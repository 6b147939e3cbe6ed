package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAITransport calls an OpenAI-compatible chat completions endpoint
type OpenAITransport struct {
	client openai.Client
}

// NewOpenAITransport creates an OpenAI transport
func NewOpenAITransport(apiKey, baseURL string) (*OpenAITransport, error) {
	if apiKey == "" {
		return nil, ErrServiceUnconfigured
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAITransport{client: client}, nil
}

// Generate sends the persona as system message and the prompt as user message
func (t *OpenAITransport) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.Persona != "" {
		messages = append(messages, openai.SystemMessage(req.Persona))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(req.Model),
		Messages:            messages,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}

	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUpstream, Op: "openai generate", Message: ErrNoChoicesInResponse}
	}

	return resp.Choices[0].Message.Content, nil
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return NewStatusError("openai generate", apiErr.StatusCode, apiErr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: "openai generate", StatusCode: http.StatusGatewayTimeout, Err: err}
	}
	return &Error{Kind: KindUpstream, Op: "openai generate", Err: fmt.Errorf("chat completion: %w", err)}
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", DefaultOpenAIModel, func(_ context.Context, cfg ProviderConfig) (Transport, error) {
		return NewOpenAITransport(cfg.APIKey, cfg.BaseURL)
	})
}
