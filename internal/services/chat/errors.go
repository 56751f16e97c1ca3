// File: internal/services/chat/errors.go
package chat

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeStreaming    ErrorType = "STREAMING"
	ErrTypeStore        ErrorType = "STORE"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    uint
	UserID    uint
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Cause  error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

// NewFieldValidationError reports one or more invalid input fields. The
// message is the first field's first message.
func NewFieldValidationError(operation string, fields map[string][]string, order []string) *ChatError {
	msg := "The given data was invalid."
	for _, name := range order {
		if msgs := fields[name]; len(msgs) > 0 {
			msg = msgs[0]
			break
		}
	}
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg, Fields: fields}
}

func NewUnauthorizedError(userID, chatID uint) *ChatError {
	return &ChatError{
		Type:      ErrTypeUnauthorized,
		Operation: "authorization",
		Message:   "Unauthorized",
		UserID:    userID,
		ChatID:    chatID,
	}
}

func NewNotFoundError(chatID uint) *ChatError {
	return &ChatError{
		Type:      ErrTypeNotFound,
		Operation: "lookup",
		Message:   "Chat not found.",
		ChatID:    chatID,
	}
}

func NewStoreError(operation string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStore, Operation: operation, Message: "storage failure", Cause: cause}
}

func NewStreamingError(msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStreaming, Operation: "streaming", Message: msg, Cause: cause}
}

// IsErrorType reports whether err is a ChatError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var chatErr *ChatError
	return errors.As(err, &chatErr) && chatErr.Type == t
}
