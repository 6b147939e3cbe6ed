package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	GeminiAPIKey     string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	AIRateLimit      string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// AIKey returns the credential for the configured AI provider
func (c *Config) AIKey() string {
	if strings.EqualFold(c.AIProvider, "openai") {
		return c.OpenAIKey
	}
	return c.GeminiAPIKey
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("AI_PROVIDER", "gemini")
	v.SetDefault("AI_RATE_LIMIT", "20-M")
	v.SetDefault("JWT_ISSUER", "butler-service")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("ENABLE_HSTS", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("RABBITMQ_PREFETCH", 1)
	v.SetDefault("WORKER_DEBUG_MODE", false)
	v.SetDefault("SERVER_DEBUG_MODE", false)
	v.SetDefault("OTEL_ENABLED", false)
	return v
}

// Load loads configuration from environment variables, optionally layered over
// the file named by CONFIG_FILE (keys are the environment variable names).
func Load() (*Config, error) {
	v := newViper()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabaseURL:      v.GetString("DATABASE_URL"),
		ServerPort:       v.GetString("SERVER_PORT"),
		BaseURL:          v.GetString("BASE_URL"),
		FrontendURL:      v.GetString("FRONTEND_URL"),
		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		OpenAIKey:        v.GetString("OPENAI_API_KEY"),
		AIProvider:       strings.ToLower(v.GetString("AI_PROVIDER")),
		AIModel:          v.GetString("AI_MODEL"),
		AIBaseURL:        v.GetString("AI_BASE_URL"),
		AIRateLimit:      v.GetString("AI_RATE_LIMIT"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTIssuer:        v.GetString("JWT_ISSUER"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		EnableHSTS:       v.GetBool("ENABLE_HSTS"),
		RedisURL:         v.GetString("REDIS_URL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQPrefetch: v.GetInt("RABBITMQ_PREFETCH"),
		WorkerDebugMode:  v.GetBool("WORKER_DEBUG_MODE"),
		ServerDebugMode:  v.GetBool("SERVER_DEBUG_MODE"),
		OTELEnabled:      v.GetBool("OTEL_ENABLED"),
		OTELEndpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (mood analysis requires RabbitMQ)")
	}

	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 7 * 24 * time.Hour
	}
	if cfg.RabbitMQPrefetch <= 0 {
		cfg.RabbitMQPrefetch = 1
	}

	return cfg, nil
}

// LoadDatabaseURL reads only DATABASE_URL, for tools that do not need the full server config
func LoadDatabaseURL() (string, error) {
	v := newViper()
	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	url := v.GetString("DATABASE_URL")
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return url, nil
}
