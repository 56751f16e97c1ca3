// File: internal/domain/message.go
package domain

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// Message represents a single turn within a chat. A nil UserID marks a reply
// written by the assistant.
type Message struct {
	ID        uint        `json:"id" gorm:"primarykey"`
	ChatID    uint        `json:"chat_id" gorm:"not null;index"`
	UserID    *uint       `json:"user_id" gorm:"index"`
	Type      MessageType `json:"type" gorm:"size:16;not null;default:text"`
	Content   string      `json:"content" gorm:"type:text;not null"` // Transcription for audio messages
	AudioPath *string     `json:"audio_path" gorm:"size:512"`
	IsRead    bool        `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsFromAssistant reports whether the message was generated by the AI.
func (m *Message) IsFromAssistant() bool {
	return m.UserID == nil
}

// AuthoredBy reports whether userID wrote the message.
func (m *Message) AuthoredBy(userID uint) bool {
	return m.UserID != nil && *m.UserID == userID
}

// NewAssistantMessage builds an unread text reply for chatID.
func NewAssistantMessage(chatID uint, content string) *Message {
	return &Message{
		ChatID:  chatID,
		UserID:  nil,
		Type:    MessageTypeText,
		Content: content,
		IsRead:  false,
	}
}
