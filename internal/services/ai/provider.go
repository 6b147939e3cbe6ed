package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Template selects the prompt shape and the generation settings of one model call
type Template string

const (
	TemplateRecommendation Template = "recommendation"
	TemplateChat           Template = "chat"
	TemplateParse          Template = "parse"
	TemplateMoodAnalysis   Template = "mood_analysis"
)

// Settings is the sampling configuration for one template
type Settings struct {
	Temperature float64
	MaxTokens   int
	// OmitPersona sends the prompt without the persona instruction
	OmitPersona bool
}

// DefaultSettings returns the per-template sampling configuration
func DefaultSettings() map[Template]Settings {
	return map[Template]Settings{
		TemplateRecommendation: {Temperature: 0.7, MaxTokens: 500},
		TemplateParse:          {Temperature: 0.3, MaxTokens: 300},
		TemplateChat:           {Temperature: 0.8, MaxTokens: 500},
		TemplateMoodAnalysis:   {Temperature: 0.3, MaxTokens: 100, OmitPersona: true},
	}
}

// GenerateRequest is one call to the generative model endpoint
type GenerateRequest struct {
	Model       string
	Prompt      string
	Persona     string
	Temperature float64
	MaxTokens   int
}

// Transport is the generative model endpoint. Implementations return *Error for status-coded failures.
type Transport interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ProviderConfig configures a transport built by the registry
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *zap.Logger
}

// ProviderFactory creates a transport for a provider name
type ProviderFactory func(ctx context.Context, cfg ProviderConfig) (Transport, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers     map[string]ProviderFactory
	defaultModels map[string]string
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers:     make(map[string]ProviderFactory),
		defaultModels: make(map[string]string),
	}
}

// NewDefaultRegistry returns a registry with the Gemini and OpenAI providers registered
func NewDefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	RegisterGemini(r)
	RegisterOpenAI(r)
	return r
}

// Register registers a provider factory and the model used when none is configured
func (r *ProviderRegistry) Register(name, defaultModel string, factory ProviderFactory) {
	r.providers[name] = factory
	r.defaultModels[name] = defaultModel
}

// DefaultModel returns the model a provider uses when none is configured
func (r *ProviderRegistry) DefaultModel(name string) string {
	return r.defaultModels[name]
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(ctx context.Context, name string, cfg ProviderConfig) (Transport, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	if cfg.Model == "" {
		cfg.Model = r.defaultModels[name]
	}

	return factory(ctx, cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// NewConfiguredClient builds the named provider's transport from registry and wraps it in a
// Client. A missing API key is not an error: the returned client reports KindServiceUnconfigured
// on every call so routes that do not need the model keep working.
func NewConfiguredClient(ctx context.Context, registry *ProviderRegistry, provider string, pc ProviderConfig, cc ClientConfig) (*Client, error) {
	if cc.Model == "" {
		cc.Model = pc.Model
	}
	if cc.Model == "" {
		cc.Model = registry.DefaultModel(provider)
	}
	pc.Model = cc.Model
	cc.Credential = pc.APIKey

	transport, err := registry.GetProvider(ctx, provider, pc)
	if errors.Is(err, ErrServiceUnconfigured) {
		return NewClient(nil, cc), nil
	}
	if err != nil {
		return nil, err
	}
	if cc.Logger != nil {
		cc.Logger.Info("ai_provider_configured",
			zap.String("provider", provider),
			zap.String("model", cc.Model),
			zap.String("api_key", SanitizeAPIKey(pc.APIKey)),
		)
	}
	return NewClient(transport, cc), nil
}
