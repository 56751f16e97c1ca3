// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

const (
	DefaultSystemPrompt = "You are a helpful assistant"

	// languageDetectionPrompt asks for nothing but an ISO 639-1 code.
	languageDetectionPrompt = `You are a language detector. Reply only with the ISO 639-1 two-letter language code of the input (like "fr", "en", "mg", "es", "de"). No explanation.`
)

type Config struct {
	APIKey  string
	BaseURL string

	// Models
	ChatModel          string
	TranscriptionModel string
	LanguageModel      string

	SystemPrompt string

	// Timeout bounds one request/response call and the opening of a stream.
	Timeout time.Duration
	// StreamTimeout bounds a streamed generation from open to last chunk.
	StreamTimeout time.Duration
	Temperature   float32
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ChatModel == "" {
		return fmt.Errorf("chat model is required")
	}
	if c.TranscriptionModel == "" {
		return fmt.Errorf("transcription model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.StreamTimeout < c.Timeout {
		return fmt.Errorf("stream timeout must be at least the call timeout")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://api.openai.com/v1",
		ChatModel:          "gpt-3.5-turbo",
		TranscriptionModel: "whisper-1",
		LanguageModel:      "gpt-3.5-turbo",
		SystemPrompt:       DefaultSystemPrompt,
		Timeout:            60 * time.Second,
		StreamTimeout:      5 * time.Minute,
		Temperature:        0.7,
	}
}
