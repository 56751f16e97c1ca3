// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/iyunix/go-voicechat/internal/middleware"
	"github.com/iyunix/go-voicechat/internal/services"
)

type ChatHandler struct {
	ChatService *services.ChatService
	Logger      Logger
}

func NewChatHandler(cs *services.ChatService, logger Logger) *ChatHandler {
	return &ChatHandler{
		ChatService: cs,
		Logger:      logger,
	}
}

// ListChats returns the user's active chats with their latest message.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthenticated.", http.StatusUnauthorized)
		return
	}

	chats, err := h.ChatService.ListChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthenticated.", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	chat, err := h.ChatService.CreateChat(r.Context(), userID, req.Title)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// GetChat returns one chat with all of its messages, oldest first.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}

	chat, err := h.ChatService.GetChat(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}

	var req services.UpdateChatInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	chat, err := h.ChatService.UpdateChat(r.Context(), userID, chatID, req)
	if err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// DeleteChat removes the chat with its messages and audio files.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, chatID, ok := userAndChat(w, r)
	if !ok {
		return
	}

	if err := h.ChatService.DeleteChat(r.Context(), userID, chatID); err != nil {
		writeServiceError(w, err, h.Logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userAndChat extracts the authenticated user and the {chat} variable,
// writing the error response itself when either is missing.
func userAndChat(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthenticated.", http.StatusUnauthorized)
		return 0, 0, false
	}
	chatID, ok := chatIDFromRequest(r)
	if !ok {
		writeError(w, "Chat not found.", http.StatusNotFound)
		return 0, 0, false
	}
	return userID, chatID, true
}
