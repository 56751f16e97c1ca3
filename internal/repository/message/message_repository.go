// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iyunix/go-voicechat/internal/domain"
	"gorm.io/gorm"
)

const maxPageSize = 100

// ErrDatabase hides driver details from callers; the cause is logged.
var ErrDatabase = errors.New("message storage unavailable")

type messageStore struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageStore{db: db}
}

func storeFailure(op string, chatID uint, err error) error {
	log.Printf("[MessageRepository] %s failed (chat=%d): %v", op, chatID, err)
	return fmt.Errorf("%s: %w", op, ErrDatabase)
}

// Create validates and inserts a message. Audio messages must carry the
// path of their stored recording.
func (r *messageStore) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if m == nil {
		return nil, errors.New("create message: nil message")
	}
	if m.ChatID == 0 {
		return nil, errors.New("create message: chat is required")
	}
	switch m.Type {
	case domain.MessageTypeText:
	case domain.MessageTypeAudio:
		if m.AudioPath == nil || *m.AudioPath == "" {
			return nil, errors.New("create message: audio message without audio path")
		}
	default:
		return nil, fmt.Errorf("create message: unknown type %q", m.Type)
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, storeFailure("create message", m.ChatID, err)
	}
	return m, nil
}

// FindByChatIDWithPagination returns one page of the chat's messages,
// newest first, plus the chat's total message count.
func (r *messageStore) FindByChatIDWithPagination(ctx context.Context, chatID uint, limit, offset int) ([]domain.Message, int64, error) {
	switch {
	case chatID == 0:
		return nil, 0, errors.New("page messages: chat is required")
	case limit <= 0 || limit > maxPageSize:
		return nil, 0, fmt.Errorf("page messages: limit %d outside 1..%d", limit, maxPageSize)
	case offset < 0:
		return nil, 0, fmt.Errorf("page messages: negative offset %d", offset)
	}

	total, err := r.CountByChatID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}

	page := []domain.Message{}
	if err := r.inChat(ctx, chatID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&page).Error; err != nil {
		return nil, 0, storeFailure("page messages", chatID, err)
	}
	return page, total, nil
}

// FindRecentBefore returns up to limit messages older than beforeID, newest
// first. A zero beforeID means no upper bound.
func (r *messageStore) FindRecentBefore(ctx context.Context, chatID, beforeID uint, limit int) ([]domain.Message, error) {
	if chatID == 0 {
		return nil, errors.New("recent messages: chat is required")
	}
	recent := []domain.Message{}
	if limit <= 0 {
		return recent, nil
	}

	q := r.inChat(ctx, chatID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&recent).Error; err != nil {
		return nil, storeFailure("recent messages", chatID, err)
	}
	return recent, nil
}

func (r *messageStore) CountByChatID(ctx context.Context, chatID uint) (int64, error) {
	var n int64
	if err := r.inChat(ctx, chatID).Count(&n).Error; err != nil {
		return 0, storeFailure("count messages", chatID, err)
	}
	return n, nil
}

// MarkChatRead flags every unread message of the chat as read. The read
// flag is the only field a message may change after creation.
func (r *messageStore) MarkChatRead(ctx context.Context, chatID uint) (int64, error) {
	res := r.inChat(ctx, chatID).Where("is_read = ?", false).Update("is_read", true)
	if res.Error != nil {
		return 0, storeFailure("mark read", chatID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageStore) inChat(ctx context.Context, chatID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID)
}
