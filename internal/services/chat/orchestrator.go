// File: internal/services/chat/orchestrator.go
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/iyunix/go-voicechat/internal/domain"
	"github.com/iyunix/go-voicechat/internal/metrics"
	chatrepo "github.com/iyunix/go-voicechat/internal/repository/chat"
	"github.com/iyunix/go-voicechat/internal/repository/message"
	"github.com/iyunix/go-voicechat/internal/services/ai"
)

// Orchestrator builds the conversation context for a new user message and
// turns the AI reply into a stored assistant message. It owns the retry
// policy for provider calls: the gateway it receives is wrapped according to
// Config.Retry.
type Orchestrator struct {
	config      *Config
	chatRepo    chatrepo.ChatRepository
	messageRepo message.MessageRepository
	gateway     ai.Gateway
	logger      Logger
}

func NewOrchestrator(
	config *Config,
	chatRepo chatrepo.ChatRepository,
	messageRepo message.MessageRepository,
	gateway ai.Gateway,
	logger Logger,
) *Orchestrator {
	return &Orchestrator{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		gateway:     ai.WithRetry(gateway, config.Retry),
		logger:      logger,
	}
}

// BuildContext returns the messages preceding userMessage (at most
// ContextWindow of them, oldest first) followed by userMessage itself.
// Messages written by userID map to the user role, all others to assistant.
func (o *Orchestrator) BuildContext(ctx context.Context, userID uint, userMessage *domain.Message) ([]ai.Turn, error) {
	prior, err := o.messageRepo.FindRecentBefore(ctx, userMessage.ChatID, userMessage.ID, o.config.ContextWindow)
	if err != nil {
		return nil, NewStoreError("load_context", err)
	}

	turns := make([]ai.Turn, 0, len(prior)+1)
	for i := len(prior) - 1; i >= 0; i-- {
		turns = append(turns, ai.Turn{Role: roleFor(&prior[i], userID), Text: prior[i].Content})
	}
	turns = append(turns, ai.Turn{Role: ai.RoleUser, Text: userMessage.Content})
	return turns, nil
}

// Respond asks the gateway for a complete reply and stores it. AI failures
// never reach the caller: the stored reply then carries the failure notice.
// Only a failure to store the reply is returned.
func (o *Orchestrator) Respond(ctx context.Context, userID uint, userMessage *domain.Message) (*domain.Message, error) {
	start := time.Now()

	history, err := o.BuildContext(ctx, userID, userMessage)
	var reply string
	if err == nil {
		reply, err = o.gateway.Complete(ctx, history)
	}

	if err != nil {
		metrics.RecordAICall("complete", "error", time.Since(start).Seconds())
		o.logger.Warn("AI completion failed; storing failure notice",
			"chat_id", userMessage.ChatID, "message_id", userMessage.ID, "error", err)
		reply = o.config.FailureNotice + failureDetail(err)
	} else {
		metrics.RecordAICall("complete", "success", time.Since(start).Seconds())
	}

	return o.SaveAssistantMessage(ctx, userMessage.ChatID, reply)
}

// OpenStream opens a token stream for history under the same retry policy
// as Respond.
func (o *Orchestrator) OpenStream(ctx context.Context, history []ai.Turn) (ai.ChunkStream, error) {
	return o.gateway.CompleteStream(ctx, history)
}

// SaveAssistantMessage stores content as an unread assistant message and
// bumps the chat's updated_at. It survives cancellation of ctx: once the AI
// has answered, the turn is kept even if the client has gone.
func (o *Orchestrator) SaveAssistantMessage(ctx context.Context, chatID uint, content string) (*domain.Message, error) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.SaveTimeout)
	defer cancel()

	saved, err := o.messageRepo.Create(saveCtx, domain.NewAssistantMessage(chatID, content))
	if err != nil {
		o.logger.Error("failed to save assistant message", "chat_id", chatID, "error", err)
		return nil, NewStoreError("save_assistant_message", err)
	}
	if err := o.chatRepo.TouchUpdatedAt(saveCtx, chatID); err != nil {
		o.logger.Warn("failed to touch chat", "chat_id", chatID, "error", err)
	}
	return saved, nil
}

func roleFor(m *domain.Message, userID uint) ai.Role {
	if m.AuthoredBy(userID) {
		return ai.RoleUser
	}
	return ai.RoleAssistant
}

// failureDetail picks the most readable description of an AI failure.
func failureDetail(err error) string {
	var aiErr *ai.AIError
	if errors.As(err, &aiErr) && aiErr.Message != "" {
		return aiErr.Message
	}
	return err.Error()
}
