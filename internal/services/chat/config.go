// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"

	"github.com/iyunix/go-voicechat/internal/services/ai"
)

type Config struct {
	// ContextWindow is how many prior messages prime one AI call.
	ContextWindow int
	// StreamBuffer bounds the queue between the upstream reader and the
	// response writer.
	StreamBuffer    int
	MessagesPerPage int

	// SaveTimeout bounds persisting a reply once the AI call has returned.
	SaveTimeout time.Duration

	// Retry decides how often a failed completion or stream open is
	// repeated. One attempt means no retry.
	Retry ai.RetryConfig

	// User-visible degradation texts.
	FailureNotice                 string
	StreamFailureText             string
	TranscriptionFallbackText     string
	TranscriptionFallbackLanguage string
}

func (c *Config) Validate() error {
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must not be negative")
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("stream_buffer must be positive")
	}
	if c.MessagesPerPage <= 0 {
		return fmt.Errorf("messages_per_page must be positive")
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		ContextWindow:                 5,
		StreamBuffer:                  16,
		MessagesPerPage:               20,
		SaveTimeout:                   5 * time.Second,
		Retry:                         ai.RetryConfig{MaxAttempts: 1},
		FailureNotice:                 "Failed to generate AI response: ",
		StreamFailureText:             "Stream failed",
		TranscriptionFallbackText:     "Transcription failed",
		TranscriptionFallbackLanguage: "en",
	}
}
