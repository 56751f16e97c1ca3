// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeProvider      ErrorType = "PROVIDER"
	ErrTypeRateLimit     ErrorType = "RATE_LIMIT"
	ErrTypeStream        ErrorType = "STREAM"
	ErrTypeTranscription ErrorType = "TRANSCRIPTION"
)

type AIError struct {
	Type      ErrorType
	Code      int // upstream HTTP status when known
	Message   string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewStreamError(msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeStream, Operation: "streaming", Message: msg, Cause: cause}
}

// NewTranscriptionError reports a failed audio-to-text call; body is the
// upstream response body.
func NewTranscriptionError(code int, body string, cause error) *AIError {
	return &AIError{
		Type:      ErrTypeTranscription,
		Code:      code,
		Operation: "transcription",
		Message:   "Transcription failed: " + body,
		Cause:     cause,
	}
}

// IsTranscriptionError reports whether err comes from the audio-to-text call.
func IsTranscriptionError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr) && aiErr.Type == ErrTypeTranscription
}
