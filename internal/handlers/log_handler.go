// File: internal/handlers/log_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-voicechat/internal/middleware"
)

// ClientLogPayload is a log entry reported by the mobile client.
type ClientLogPayload struct {
	Level   string `json:"level"`             // e.g., "info", "error", "warn"
	Message string `json:"message"`           // The main log message
	Context any    `json:"context,omitempty"` // Optional extra data (e.g., stack trace)
}

type LogHandler struct {
	Logger Logger
}

func NewLogHandler(logger Logger) *LogHandler {
	return &LogHandler{Logger: logger}
}

// LogClientEvent records a client-side log entry at the requested level.
func (h *LogHandler) LogClientEvent(w http.ResponseWriter, r *http.Request) {
	var payload ClientLogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Malformed request body.", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeValidationError(w, "The message field is required.",
			map[string][]string{"message": {"The message field is required."}})
		return
	}

	kv := []interface{}{"client_message", payload.Message, "context", payload.Context}
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		kv = append(kv, "user_id", userID)
	}

	switch strings.ToLower(payload.Level) {
	case "error":
		h.Logger.Error("CLIENT_LOG", kv...)
	case "warn", "warning":
		h.Logger.Warn("CLIENT_LOG", kv...)
	case "debug":
		h.Logger.Debug("CLIENT_LOG", kv...)
	default:
		h.Logger.Info("CLIENT_LOG", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
