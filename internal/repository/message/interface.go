// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-voicechat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	// FindByChatIDWithPagination returns one page, newest first, and the total count.
	FindByChatIDWithPagination(ctx context.Context, chatID uint, limit, offset int) ([]domain.Message, int64, error)
	// FindRecentBefore returns up to limit messages of the chat whose ID is
	// lower than beforeID, newest first.
	FindRecentBefore(ctx context.Context, chatID, beforeID uint, limit int) ([]domain.Message, error)
	CountByChatID(ctx context.Context, chatID uint) (int64, error)
	MarkChatRead(ctx context.Context, chatID uint) (int64, error)
}
