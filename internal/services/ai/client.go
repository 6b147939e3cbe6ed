package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/logger"
	"go.uber.org/zap"
)

// ClientConfig configures a Client
type ClientConfig struct {
	Credential string
	Model      string
	Persona    string
	Settings   map[Template]Settings
	Logger     *zap.Logger
	DebugMode  bool
}

// Client invokes the generative model with a fixed persona. It is built once at startup
// and shared by every request.
type Client struct {
	transport  Transport
	credential string
	model      string
	persona    string
	settings   map[Template]Settings
	logger     *zap.Logger
	debugMode  bool
}

// NewClient creates a client. A nil transport or empty credential yields a client whose
// every invocation fails with KindServiceUnconfigured.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	settings := DefaultSettings()
	for tpl, s := range cfg.Settings {
		settings[tpl] = s
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		transport:  transport,
		credential: cfg.Credential,
		model:      cfg.Model,
		persona:    cfg.Persona,
		settings:   settings,
		logger:     log,
		debugMode:  cfg.DebugMode,
	}
}

// Configured reports whether the client has a credential and a transport
func (c *Client) Configured() bool {
	return c != nil && c.credential != "" && c.transport != nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Invoke sends the prompt with the settings of tpl and returns the raw model text.
// Failures are *Error values; nothing is retried here.
func (c *Client) Invoke(ctx context.Context, tpl Template, prompt string) (string, error) {
	op := "invoke " + string(tpl)
	if !c.Configured() {
		if c != nil {
			c.logger.Error("ai_service_unconfigured", zap.String("template", string(tpl)))
		}
		return "", &Error{Kind: KindServiceUnconfigured, Op: op, Err: ErrServiceUnconfigured}
	}

	settings, ok := c.settings[tpl]
	if !ok {
		return "", fmt.Errorf("unknown template %q", tpl)
	}

	req := GenerateRequest{
		Model:       c.model,
		Prompt:      prompt,
		Persona:     c.persona,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	if settings.OmitPersona {
		req.Persona = ""
	}

	if c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("operation", string(tpl)),
			zap.String("model", c.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", logger.Preview(prompt, true)),
			zap.Float64("temperature", settings.Temperature),
			zap.Int("max_tokens", settings.MaxTokens),
		)
	}

	start := time.Now()
	text, err := c.transport.Generate(ctx, req)
	latency := time.Since(start)

	if err != nil {
		classified := classify(ctx, op, err)
		if c.debugMode {
			c.logger.Debug("llm_api_error",
				zap.String("operation", string(tpl)),
				zap.String("model", c.model),
				zap.String("kind", string(classified.Kind)),
				zap.Int("status_code", classified.StatusCode),
				zap.String("error", logger.SanitizeError(err)),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", classified
	}

	if c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("operation", string(tpl)),
			zap.String("model", c.model),
			zap.Int("response_length", len(text)),
			zap.String("response_preview", logger.Preview(text, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return text, nil
}

// classify turns a transport failure into an *Error. A caller deadline always wins.
func classify(ctx context.Context, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Message: "model call exceeded deadline", Err: err}
	}

	var aiErr *Error
	if errors.As(err, &aiErr) {
		if aiErr.Op == "" {
			aiErr.Op = op
		}
		if aiErr.Kind == "" {
			aiErr.Kind = KindForStatus(aiErr.StatusCode)
		}
		return aiErr
	}

	return &Error{Kind: KindUpstream, Op: op, Err: err}
}
