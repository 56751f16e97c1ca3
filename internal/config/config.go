// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecretKey string `env:"JWT_SECRET_KEY"`

	// Upstream AI provider (any OpenAI-compatible endpoint).
	OpenAIAPIKey             string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL            string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIChatModel          string        `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAITranscriptionModel string        `env:"OPENAI_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	OpenAILanguageModel      string        `env:"OPENAI_LANGUAGE_MODEL" envDefault:"gpt-3.5-turbo"`
	AISystemPrompt           string        `env:"AI_SYSTEM_PROMPT" envDefault:"You are a helpful assistant"`
	AITemperature            float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	AITimeout                time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`
	AIStreamTimeout          time.Duration `env:"AI_STREAM_TIMEOUT" envDefault:"5m"`
	AIMaxAttempts            int           `env:"AI_MAX_ATTEMPTS" envDefault:"2"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"voicechat.db"`
	StorageRoot string `env:"STORAGE_ROOT" envDefault:"storage/public"`

	ContextWindow   int `env:"CHAT_CONTEXT_WINDOW" envDefault:"5"`
	StreamBuffer    int `env:"CHAT_STREAM_BUFFER" envDefault:"16"`
	MessagesPerPage int `env:"MESSAGES_PER_PAGE" envDefault:"20"`

	// Per-user limit on endpoints that reach the AI provider.
	AIRateLimit  int           `env:"AI_RATE_LIMIT" envDefault:"30"`
	AIRateWindow time.Duration `env:"AI_RATE_WINDOW" envDefault:"1m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// New reads configuration from the environment, loading a .env file first
// outside production.
func New() (*Config, error) {
	if !strings.EqualFold(os.Getenv("ENV"), "production") {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is New for callers that cannot continue without configuration.
func Load() *Config {
	cfg, err := New()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("CHAT_CONTEXT_WINDOW must not be negative")
	}
	if c.MessagesPerPage <= 0 || c.MessagesPerPage > 100 {
		return fmt.Errorf("MESSAGES_PER_PAGE must be between 1 and 100")
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("CHAT_STREAM_BUFFER must be positive")
	}
	if c.AIStreamTimeout < c.AITimeout {
		return fmt.Errorf("AI_STREAM_TIMEOUT must not be shorter than AI_TIMEOUT")
	}
	if c.AIMaxAttempts < 1 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1")
	}

	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	return nil
}
