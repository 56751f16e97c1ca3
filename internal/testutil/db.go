// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iyunix/go-voicechat/internal/domain"
	"github.com/iyunix/go-voicechat/internal/repository"
)

// NewTestDB opens a private, migrated in-memory SQLite database that is
// closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := repository.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes access.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedChat inserts an active chat owned by userID.
func SeedChat(t testing.TB, db *gorm.DB, userID uint, title string) *domain.Chat {
	t.Helper()
	chat := &domain.Chat{UserID: userID, Title: title, IsActive: true}
	if err := db.Create(chat).Error; err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat
}

// SeedMessage inserts a text message; a zero authorID stores an assistant
// message.
func SeedMessage(t testing.TB, db *gorm.DB, chatID, authorID uint, content string) *domain.Message {
	t.Helper()
	msg := &domain.Message{ChatID: chatID, Type: domain.MessageTypeText, Content: content}
	if authorID != 0 {
		id := authorID
		msg.UserID = &id
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}
