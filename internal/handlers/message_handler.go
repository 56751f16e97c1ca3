// File: internal/handlers/message_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/iyunix/go-voicechat/internal/services"
	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
	"github.com/iyunix/go-voicechat/internal/storage"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 1 << 20

type MessageHandler struct {
	ChatService *services.ChatService
	Logger      Logger
}

func NewMessageHandler(cs *services.ChatService, logger Logger) *MessageHandler {
	return &MessageHandler{
		ChatService: cs,
		Logger:      logger,
	}
}

// ListMessages returns one page of messages, newest first.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.ChatService.ListMessages(r.Context(), userID, chatID, page)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StoreMessage stores the user's message and answers with the assistant
// reply, either as one JSON object or as a stream of events.
func (h *MessageHandler) StoreMessage(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}
	if err := h.ChatService.CheckAccess(r.Context(), userID, chatID); err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}

	in, err := bindSubmission(r)
	if err != nil {
		h.writeBindError(w, err)
		return
	}

	userMessage, err := h.ChatService.AcceptMessage(r.Context(), userID, chatID, in)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}

	if in.Stream {
		events := startEventStream(w)
		if _, err := h.ChatService.StreamReply(r.Context(), userID, userMessage, events); err != nil {
			h.Logger.Warn("stream ended without a reply", "chat_id", chatID, "message_id", userMessage.ID, "error", err)
		}
		return
	}

	reply, err := h.ChatService.Reply(r.Context(), userID, userMessage)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusCreated, services.SubmitResult{Message: userMessage, AIResponse: reply})
}

// Transcribe stores an uploaded recording and returns its transcription.
// Provider failures still answer 200 with the fallback text.
func (h *MessageHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}
	if err := h.ChatService.CheckAccess(r.Context(), userID, chatID); err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}

	// Leave room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAudioBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeValidationError(w, audioTooLarge, map[string][]string{"audio": {audioTooLarge}})
			return
		}
		writeValidationError(w, audioRequired, map[string][]string{"audio": {audioRequired}})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeValidationError(w, audioRequired, map[string][]string{"audio": {audioRequired}})
		return
	}
	defer file.Close()

	result, err := h.ChatService.TranscribeAudio(r.Context(), userID, chatID, file, header.Filename)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MarkRead flags every message in the chat as read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}

	if _, err := h.ChatService.MarkRead(r.Context(), userID, chatID); err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBindError answers an unreadable submission body with 422. A field of
// the wrong JSON type is reported on that field; any other decode failure is
// validated as an empty submission.
func (h *MessageHandler) writeBindError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		msg := fmt.Sprintf("The %s field must be a string.", strings.ReplaceAll(typeErr.Field, "_", " "))
		writeValidationError(w, msg, map[string][]string{typeErr.Field: {msg}})
		return
	}
	h.Logger.Debug("unreadable submission body", "error", err)
	writeServiceError(w, chatservice.ValidateSubmission(&chatservice.SubmitMessageInput{}), h.Logger)
}

const (
	audioRequired = "The audio field is required."
	audioTooLarge = "The audio field must not be greater than 10240 kilobytes."
)

// submissionBody accepts "stream" as a JSON boolean, number or string.
type submissionBody struct {
	Content   string   `json:"content"`
	Type      string   `json:"type"`
	AudioPath string   `json:"audio_path"`
	Stream    flexBool `json:"stream"`
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		*b = false
		return nil
	}
	*b = flexBool(parseBool(raw))
	return nil
}

// bindSubmission reads a message submission from a JSON, urlencoded or
// multipart body. A "stream" query parameter also enables streaming.
func bindSubmission(r *http.Request) (*chatservice.SubmitMessageInput, error) {
	in := &chatservice.SubmitMessageInput{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body submissionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		in.Content = body.Content
		in.Type = body.Type
		in.AudioPath = body.AudioPath
		in.Stream = bool(body.Stream)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		bindForm(r, in)
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		bindForm(r, in)
	}

	if !in.Stream && r.URL.Query().Has("stream") {
		in.Stream = parseBool(r.URL.Query().Get("stream"))
	}
	return in, nil
}

func bindForm(r *http.Request, in *chatservice.SubmitMessageInput) {
	in.Content = r.FormValue("content")
	in.Type = r.FormValue("type")
	in.AudioPath = r.FormValue("audio_path")
	in.Stream = parseBool(r.FormValue("stream"))
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
