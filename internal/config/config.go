package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the rpohub server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Content   ContentConfig
	Events    EventsConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port int    `env:"RPO_PORT" envDefault:"8080"`
	Env  string `env:"RPO_ENV"  envDefault:"development"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrationsDir   string        `env:"DATABASE_MIGRATIONS_DIR"    envDefault:"migrations"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

type ContentConfig struct {
	Provider  string        `env:"CONTENT_PROVIDER" envDefault:"mock"`
	Timeout   time.Duration `env:"CONTENT_TIMEOUT"  envDefault:"60s"`
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// OpenAIConfig also serves vLLM and Ollama, which expose the same chat completions API.
type OpenAIConfig struct {
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"OPENAI_MODEL"    envDefault:"gpt-4o-mini"`
}

type AnthropicConfig struct {
	BaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	APIKey  string `env:"ANTHROPIC_API_KEY"`
	Model   string `env:"ANTHROPIC_MODEL"    envDefault:"claude-sonnet-4-5"`
}

type EventsConfig struct {
	Sink    string `env:"EVENTS_SINK" envDefault:"none"`
	Webhook WebhookConfig
	NATS    NATSConfig
}

type WebhookConfig struct {
	URL     string        `env:"WEBHOOK_URL"`
	Secret  string        `env:"WEBHOOK_SECRET"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
}

type NATSConfig struct {
	URL           string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"rpo"`
}

type AnalyticsConfig struct {
	CacheTTL time.Duration `env:"ANALYTICS_CACHE_TTL" envDefault:"5m"`
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

var validSinks = map[string]bool{
	"webhook": true,
	"nats":    true,
	"none":    true,
}

// Load reads configuration from environment variables (and a .env file when
// present) and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("RPO_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.Content.Provider] {
		return fmt.Errorf("CONTENT_PROVIDER must be one of openai, anthropic, mock; got %q", c.Content.Provider)
	}
	if c.Content.Provider == "openai" {
		if !isHTTPURL(c.Content.OpenAI.BaseURL) {
			return fmt.Errorf("OPENAI_BASE_URL must start with http:// or https://, got %q", c.Content.OpenAI.BaseURL)
		}
		// Self-hosted vLLM/Ollama endpoints run without a key.
		if strings.Contains(c.Content.OpenAI.BaseURL, "api.openai.com") && c.Content.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when OPENAI_BASE_URL points at api.openai.com")
		}
	}
	if c.Content.Provider == "anthropic" && c.Content.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when CONTENT_PROVIDER is anthropic")
	}
	if c.Content.Timeout <= 0 {
		return fmt.Errorf("CONTENT_TIMEOUT must be positive, got %s", c.Content.Timeout)
	}

	if !validSinks[c.Events.Sink] {
		return fmt.Errorf("EVENTS_SINK must be one of webhook, nats, none; got %q", c.Events.Sink)
	}
	if c.Events.Sink == "webhook" && !isHTTPURL(c.Events.Webhook.URL) {
		return fmt.Errorf("WEBHOOK_URL must start with http:// or https:// when EVENTS_SINK is webhook, got %q", c.Events.Webhook.URL)
	}
	if c.Events.Sink == "nats" && c.Events.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_SINK is nats")
	}

	if c.Analytics.CacheTTL < 0 {
		return fmt.Errorf("ANALYTICS_CACHE_TTL must not be negative, got %s", c.Analytics.CacheTTL)
	}

	return nil
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
