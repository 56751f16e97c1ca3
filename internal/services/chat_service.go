// File: internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/iyunix/go-voicechat/internal/domain"
	"github.com/iyunix/go-voicechat/internal/metrics"
	"github.com/iyunix/go-voicechat/internal/repository/chat"
	"github.com/iyunix/go-voicechat/internal/repository/message"
	"github.com/iyunix/go-voicechat/internal/services/ai"
	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
	"github.com/iyunix/go-voicechat/internal/storage"
)

const maxTitleLength = 255

// UpdateChatInput carries the chat fields a PATCH may change.
type UpdateChatInput struct {
	Title    *string `json:"title"`
	IsActive *bool   `json:"is_active"`
}

// MessagePage is one page of a chat's messages, newest first.
type MessagePage struct {
	Data        []domain.Message `json:"data"`
	CurrentPage int              `json:"current_page"`
	PerPage     int              `json:"per_page"`
	Total       int64            `json:"total"`
	LastPage    int              `json:"last_page"`
}

// SubmitResult pairs the stored user message with the assistant reply.
type SubmitResult struct {
	Message    *domain.Message `json:"message"`
	AIResponse *domain.Message `json:"ai_response"`
}

type TranscriptionResult struct {
	Transcription string `json:"transcription"`
	Language      string `json:"language"`
	AudioPath     string `json:"audio_path"`
}

type ChatService struct {
	config      *chatservice.Config
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	responder   chatservice.Responder
	relayer     chatservice.Relayer
	gateway     ai.Gateway
	blobs       storage.BlobStore
	logger      Logger
}

func NewChatService(
	config *chatservice.Config,
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	responder chatservice.Responder,
	relayer chatservice.Relayer,
	gateway ai.Gateway,
	blobs storage.BlobStore,
	logger Logger,
) (*ChatService, error) {
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if messageRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "message repository is required")
	}
	if responder == nil || relayer == nil {
		return nil, chatservice.NewValidationError("constructor", "responder and relayer are required")
	}
	if gateway == nil {
		return nil, chatservice.NewValidationError("constructor", "AI gateway is required")
	}
	if blobs == nil {
		return nil, chatservice.NewValidationError("constructor", "blob store is required")
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	return &ChatService{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		responder:   responder,
		relayer:     relayer,
		gateway:     gateway,
		blobs:       blobs,
		logger:      logger,
	}, nil
}

// ===== CHATS =====

func (s *ChatService) CreateChat(ctx context.Context, userID uint, title string) (*domain.Chat, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	created, err := s.chatRepo.Create(ctx, &domain.Chat{UserID: userID, Title: title, IsActive: true})
	if err != nil {
		return nil, chatservice.NewStoreError("create_chat", err)
	}
	s.logger.Info("chat created", "chat_id", created.ID, "user_id", userID)
	return created, nil
}

// ListChats returns the user's active chats, each with its latest message.
func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]domain.Chat, error) {
	chats, err := s.chatRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, chatservice.NewStoreError("list_chats", err)
	}
	return chats, nil
}

// GetChat returns the chat with all of its messages, oldest first.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID uint) (*domain.Chat, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	found, err := s.chatRepo.FindByIDWithMessages(ctx, chatID)
	if err != nil {
		return nil, s.lookupError(chatID, err)
	}
	if found.Messages == nil {
		found.Messages = []domain.Message{}
	}
	return found, nil
}

func (s *ChatService) UpdateChat(ctx context.Context, userID, chatID uint, in UpdateChatInput) (*domain.Chat, error) {
	current, err := s.authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	changes := chat.ChatChanges{IsActive: in.IsActive}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		changes.Title = &title
	}
	if changes.IsEmpty() {
		return current, nil
	}

	updated, err := s.chatRepo.Update(ctx, chatID, changes)
	if err != nil {
		return nil, s.lookupError(chatID, err)
	}
	return updated, nil
}

// DeleteChat removes the chat, its messages and their audio files.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID uint) error {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return err
	}

	audioPaths, err := s.chatRepo.DeleteWithMessages(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, chat.ErrUnauthorizedAccess) {
			return chatservice.NewUnauthorizedError(userID, chatID)
		}
		return chatservice.NewStoreError("delete_chat", err)
	}

	for _, p := range audioPaths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to delete audio file", "chat_id", chatID, "path", p, "error", err)
		}
	}
	s.logger.Info("chat deleted", "chat_id", chatID, "user_id", userID, "audio_files", len(audioPaths))
	return nil
}

// ===== MESSAGES =====

// ListMessages returns page (1-based) of the chat's messages, newest first.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uint, page int) (*MessagePage, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	perPage := s.config.MessagesPerPage
	messages, total, err := s.messageRepo.FindByChatIDWithPagination(ctx, chatID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, chatservice.NewStoreError("list_messages", err)
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return &MessagePage{
		Data:        messages,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

// AcceptMessage checks ownership, validates the input and stores the user
// message. Nothing is stored when either check fails.
func (s *ChatService) AcceptMessage(ctx context.Context, userID, chatID uint, in *chatservice.SubmitMessageInput) (*domain.Message, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := chatservice.ValidateSubmission(in); err != nil {
		return nil, err
	}

	saved, err := s.messageRepo.Create(ctx, in.ToMessage(chatID, userID))
	if err != nil {
		return nil, chatservice.NewStoreError("save_user_message", err)
	}
	if err := s.chatRepo.TouchUpdatedAt(ctx, chatID); err != nil {
		s.logger.Warn("failed to touch chat", "chat_id", chatID, "error", err)
	}
	return saved, nil
}

// Reply produces and stores the complete assistant reply to an accepted
// user message.
func (s *ChatService) Reply(ctx context.Context, userID uint, userMessage *domain.Message) (*domain.Message, error) {
	return s.responder.Respond(ctx, userID, userMessage)
}

// StreamReply relays the reply to an accepted user message through w.
func (s *ChatService) StreamReply(ctx context.Context, userID uint, userMessage *domain.Message, w chatservice.EventWriter) (*domain.Message, error) {
	return s.relayer.Stream(ctx, userID, userMessage, w)
}

// TranscribeAudio stores the upload and transcribes it. Provider failures
// yield the fallback text and language instead of an error; the stored
// audio path is returned either way.
func (s *ChatService) TranscribeAudio(ctx context.Context, userID, chatID uint, audio io.Reader, filename string) (*TranscriptionResult, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		var sniffErr error
		if ext, audio, sniffErr = storage.SniffExtension(audio); sniffErr != nil {
			return nil, chatservice.NewStoreError("store_audio", sniffErr)
		}
	}

	audioPath, err := s.blobs.Save(ctx, storage.AudioDir, ext, audio)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, chatservice.NewFieldValidationError("transcribe",
				map[string][]string{"audio": {"The audio field must not be greater than 10240 kilobytes."}},
				[]string{"audio"})
		}
		return nil, chatservice.NewStoreError("store_audio", err)
	}

	result := &TranscriptionResult{
		Transcription: s.config.TranscriptionFallbackText,
		Language:      s.config.TranscriptionFallbackLanguage,
		AudioPath:     audioPath,
	}

	start := time.Now()
	transcription, err := s.transcribeStored(ctx, audioPath, filename)
	if err != nil {
		metrics.RecordAICall("transcribe", "error", time.Since(start).Seconds())
		s.logger.Warn("transcription failed; returning fallback", "chat_id", chatID, "path", audioPath, "error", err)
		return result, nil
	}
	metrics.RecordAICall("transcribe", "success", time.Since(start).Seconds())

	result.Transcription = transcription.Text
	if transcription.LanguageCode != "" {
		result.Language = transcription.LanguageCode
	}
	return result, nil
}

func (s *ChatService) transcribeStored(ctx context.Context, audioPath, filename string) (*ai.Transcription, error) {
	f, err := s.blobs.Open(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The provider infers the audio format from the extension.
	if filepath.Ext(filename) == "" {
		filename = filepath.Base(audioPath)
	}
	return s.gateway.Transcribe(ctx, f, filename)
}

// MarkRead flags every message of the chat as read.
func (s *ChatService) MarkRead(ctx context.Context, userID, chatID uint) (int64, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return 0, err
	}
	n, err := s.messageRepo.MarkChatRead(ctx, chatID)
	if err != nil {
		return 0, chatservice.NewStoreError("mark_read", err)
	}
	return n, nil
}

// CheckAccess reports whether userID may use the chat, without side effects.
func (s *ChatService) CheckAccess(ctx context.Context, userID, chatID uint) error {
	_, err := s.authorize(ctx, userID, chatID)
	return err
}

// ===== HELPERS =====

// authorize loads the chat and checks that userID owns it.
func (s *ChatService) authorize(ctx context.Context, userID, chatID uint) (*domain.Chat, error) {
	found, err := s.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, s.lookupError(chatID, err)
	}
	if !found.IsOwnedBy(userID) {
		s.logger.Warn("chat access denied", "chat_id", chatID, "user_id", userID)
		return nil, chatservice.NewUnauthorizedError(userID, chatID)
	}
	return found, nil
}

func (s *ChatService) lookupError(chatID uint, err error) error {
	if errors.Is(err, chat.ErrChatNotFound) {
		return chatservice.NewNotFoundError(chatID)
	}
	return chatservice.NewStoreError("find_chat", err)
}

func validateTitle(title string) error {
	var msg string
	switch {
	case title == "":
		msg = "The title field is required."
	case len([]rune(title)) > maxTitleLength:
		msg = "The title field must not be greater than 255 characters."
	default:
		return nil
	}
	return chatservice.NewFieldValidationError("chat_title", map[string][]string{"title": {msg}}, []string{"title"})
}
