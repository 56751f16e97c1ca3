package chat

import (
	"context"

	"github.com/iyunix/go-voicechat/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, id uint) (*domain.Chat, error)
	FindByIDWithMessages(ctx context.Context, id uint) (*domain.Chat, error)
	FindActiveByUserID(ctx context.Context, userID uint) ([]domain.Chat, error)
	Update(ctx context.Context, chatID uint, changes ChatChanges) (*domain.Chat, error)
	TouchUpdatedAt(ctx context.Context, chatID uint) error
	// DeleteWithMessages removes the chat and its messages in one transaction
	// and returns the audio paths the deleted messages referenced.
	DeleteWithMessages(ctx context.Context, chatID, userID uint) ([]string, error)
}

// ChatChanges lists the mutable chat fields; nil means unchanged.
type ChatChanges struct {
	Title    *string
	IsActive *bool
}

func (c ChatChanges) IsEmpty() bool {
	return c.Title == nil && c.IsActive == nil
}
