// File: internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
)

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeValidationError(w http.ResponseWriter, message string, fields map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"message": message,
		"errors":  fields,
	})
}

// writeServiceError maps service errors to HTTP statuses. Internal causes
// are logged, never returned.
func writeServiceError(w http.ResponseWriter, err error, logger Logger) {
	var chatErr *chatservice.ChatError
	if !errors.As(err, &chatErr) {
		logger.Error("unhandled service error", "error", err)
		writeError(w, "Server Error", http.StatusInternalServerError)
		return
	}

	switch chatErr.Type {
	case chatservice.ErrTypeValidation:
		fields := chatErr.Fields
		if fields == nil {
			fields = map[string][]string{}
		}
		writeValidationError(w, chatErr.Message, fields)
	case chatservice.ErrTypeUnauthorized:
		writeError(w, chatErr.Message, http.StatusForbidden)
	case chatservice.ErrTypeNotFound:
		writeError(w, chatErr.Message, http.StatusNotFound)
	default:
		logger.Error("service error", "error", err)
		writeError(w, "Server Error", http.StatusInternalServerError)
	}
}

// chatIDFromRequest reads the {chat} route variable. Anything that is not a
// positive integer cannot name a chat.
func chatIDFromRequest(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["chat"], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
