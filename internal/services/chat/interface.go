// File: internal/services/chat/interface.go
package chat

import (
	"context"

	"github.com/iyunix/go-voicechat/internal/domain"
)

// Responder turns one stored user message into one assistant message.
type Responder interface {
	Respond(ctx context.Context, userID uint, userMessage *domain.Message) (*domain.Message, error)
}

// Relayer streams the reply to one stored user message through w.
type Relayer interface {
	Stream(ctx context.Context, userID uint, userMessage *domain.Message, w EventWriter) (*domain.Message, error)
}

// EventWriter delivers one framed event to the client and flushes it.
type EventWriter interface {
	WriteEvent(event Event) error
}

// Logger is the structured logger the chat pipeline writes to.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
