// File: internal/services/ai/retry.go
package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// RetryConfig defines how failed provider calls are repeated.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		Delay:       500 * time.Millisecond,
	}
}

// RetryingGateway repeats the calls of another Gateway whose request can be
// replayed: completions and the opening of a stream. Transcriptions consume
// their reader and pass through once.
type RetryingGateway struct {
	inner  Gateway
	config RetryConfig
}

// WithRetry wraps inner unless config allows a single attempt only.
func WithRetry(inner Gateway, config RetryConfig) Gateway {
	if config.MaxAttempts <= 1 {
		return inner
	}
	return &RetryingGateway{inner: inner, config: config}
}

func (g *RetryingGateway) Complete(ctx context.Context, history []Turn) (string, error) {
	var reply string
	err := retryWithBackoff(ctx, g.config, func(ctx context.Context) error {
		var err error
		reply, err = g.inner.Complete(ctx, history)
		return err
	})
	return reply, err
}

// CompleteStream retries only while no chunk has reached the caller.
func (g *RetryingGateway) CompleteStream(ctx context.Context, history []Turn) (ChunkStream, error) {
	var stream ChunkStream
	err := retryWithBackoff(ctx, g.config, func(ctx context.Context) error {
		var err error
		stream, err = g.inner.CompleteStream(ctx, history)
		return err
	})
	return stream, err
}

func (g *RetryingGateway) Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcription, error) {
	return g.inner.Transcribe(ctx, audio, filename)
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error or runs out of attempts. The delay doubles after each failure.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := config.Delay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}

		// Don't wait after last attempt
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return lastErr
}

// isRetryable reports whether err is a transient provider failure: a 5xx
// answer or a transport error that never produced a status.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var aiErr *AIError
	if !errors.As(err, &aiErr) {
		return false
	}
	switch aiErr.Type {
	case ErrTypeConfig, ErrTypeRateLimit:
		return false
	}
	return aiErr.Code == 0 || aiErr.Code >= http.StatusInternalServerError
}
