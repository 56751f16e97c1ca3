// File: internal/repository/chat/chat_repository.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iyunix/go-voicechat/internal/domain"
	"gorm.io/gorm"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrUnauthorizedAccess = errors.New("chat belongs to another user")
	// ErrDatabase hides driver details from callers; the cause is logged.
	ErrDatabase = errors.New("chat storage unavailable")
)

const maxTitleLength = 255

type chatStore struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatStore{db: db}
}

// storeFailure logs the driver error and returns the opaque sentinel.
func storeFailure(op string, id uint, err error) error {
	log.Printf("[ChatRepository] %s failed (id=%d): %v", op, id, err)
	return fmt.Errorf("%s: %w", op, ErrDatabase)
}

func (r *chatStore) Create(ctx context.Context, c *domain.Chat) (*domain.Chat, error) {
	switch {
	case c == nil:
		return nil, errors.New("create chat: nil chat")
	case c.UserID == 0:
		return nil, errors.New("create chat: owner is required")
	}
	if err := checkTitle(c.Title); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, storeFailure("create chat", c.UserID, err)
	}
	return c, nil
}

func (r *chatStore) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
	return r.first(ctx, "find chat", chatID, r.db.WithContext(ctx))
}

// FindByIDWithMessages loads the chat with every message, oldest first.
func (r *chatStore) FindByIDWithMessages(ctx context.Context, chatID uint) (*domain.Chat, error) {
	withMessages := r.db.WithContext(ctx).Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
	return r.first(ctx, "find chat with messages", chatID, withMessages)
}

func (r *chatStore) first(_ context.Context, op string, chatID uint, q *gorm.DB) (*domain.Chat, error) {
	if chatID == 0 {
		return nil, ErrChatNotFound
	}
	var c domain.Chat
	switch err := q.First(&c, chatID).Error; {
	case err == nil:
		return &c, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrChatNotFound
	default:
		return nil, storeFailure(op, chatID, err)
	}
}

// FindActiveByUserID lists the user's active chats, most recently updated
// first, each carrying only its latest message.
func (r *chatStore) FindActiveByUserID(ctx context.Context, userID uint) ([]domain.Chat, error) {
	if userID == 0 {
		return nil, errors.New("list chats: owner is required")
	}

	chats := []domain.Chat{}
	if err := r.db.WithContext(ctx).
		Where(&domain.Chat{UserID: userID, IsActive: true}).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error; err != nil {
		return nil, storeFailure("list chats", userID, err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	ids := make([]uint, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	newest := r.db.Model(&domain.Message{}).
		Select("MAX(id)").
		Where("chat_id IN ?", ids).
		Group("chat_id")

	var latest []domain.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", newest).Find(&latest).Error; err != nil {
		return nil, storeFailure("load latest messages", userID, err)
	}

	byChat := make(map[uint]domain.Message, len(latest))
	for _, m := range latest {
		byChat[m.ChatID] = m
	}
	for i := range chats {
		if m, ok := byChat[chats[i].ID]; ok {
			chats[i].Messages = []domain.Message{m}
		}
	}
	return chats, nil
}

func (r *chatStore) Update(ctx context.Context, chatID uint, changes ChatChanges) (*domain.Chat, error) {
	fields := make(map[string]interface{}, 2)
	if changes.Title != nil {
		if err := checkTitle(*changes.Title); err != nil {
			return nil, fmt.Errorf("update chat: %w", err)
		}
		fields["title"] = *changes.Title
	}
	if changes.IsActive != nil {
		fields["is_active"] = *changes.IsActive
	}

	if len(fields) > 0 {
		if err := r.updateColumns(ctx, "update chat", chatID, fields); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, chatID)
}

// TouchUpdatedAt moves the chat to the top of its owner's list.
func (r *chatStore) TouchUpdatedAt(ctx context.Context, chatID uint) error {
	if chatID == 0 {
		return ErrChatNotFound
	}
	return r.updateColumns(ctx, "touch chat", chatID, map[string]interface{}{"updated_at": time.Now()})
}

func (r *chatStore) updateColumns(ctx context.Context, op string, chatID uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.Chat{}).Where("id = ?", chatID).Updates(fields)
	if res.Error != nil {
		return storeFailure(op, chatID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *chatStore) DeleteWithMessages(ctx context.Context, chatID, userID uint) ([]string, error) {
	if chatID == 0 || userID == 0 {
		return nil, errors.New("delete chat: chat and owner are required")
	}

	var audioPaths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned domain.Chat
		err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&owned).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorizedAccess
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&domain.Message{}).
			Where("chat_id = ? AND audio_path IS NOT NULL AND audio_path <> ''", chatID).
			Pluck("audio_path", &audioPaths).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&owned).Error
	})
	switch {
	case errors.Is(err, ErrUnauthorizedAccess):
		return nil, err
	case err != nil:
		return nil, storeFailure("delete chat", chatID, err)
	}

	log.Printf("[ChatRepository] deleted chat %d of user %d with %d audio files", chatID, userID, len(audioPaths))
	return audioPaths, nil
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	if n := len([]rune(title)); n > maxTitleLength {
		return fmt.Errorf("title has %d characters, at most %d allowed", n, maxTitleLength)
	}
	return nil
}
