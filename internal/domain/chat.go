// File: internal/domain/chat.go
package domain

import "time"

// Chat represents a single conversation thread owned by one user.
type Chat struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"` // The ID of the user who owns the chat
	Title     string    `json:"title" gorm:"size:255;not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"` // Inactive chats are hidden from listings
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `json:"messages,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// IsOwnedBy reports whether userID may read or mutate the chat.
func (c *Chat) IsOwnedBy(userID uint) bool {
	return c != nil && userID != 0 && c.UserID == userID
}
