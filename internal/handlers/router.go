// File: internal/handlers/router.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iyunix/go-voicechat/internal/middleware"
	"github.com/iyunix/go-voicechat/internal/ratelimit"
)

// RouterConfig carries what the router needs beyond the handlers.
type RouterConfig struct {
	JWTSecret []byte
	// AILimiter guards the endpoints that call the AI provider; nil disables it.
	AILimiter *ratelimit.MemoryRateLimiter
	// Ping reports database health for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

// NewRouter registers every route of the API.
func NewRouter(
	chats *ChatHandler,
	messages *MessageHandler,
	logs *LogHandler,
	cfg RouterConfig,
	logger Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RecoverPanic(logger),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware,
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not Found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", healthHandler(cfg.Ping)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewJWTMiddleware(cfg.JWTSecret, logger))

	limitAI := func(h http.HandlerFunc) http.Handler {
		if cfg.AILimiter == nil {
			return h
		}
		return middleware.RateLimitMiddleware(cfg.AILimiter, "ai", logger)(h)
	}

	api.HandleFunc("/chats", chats.ListChats).Methods(http.MethodGet)
	api.HandleFunc("/chats", chats.CreateChat).Methods(http.MethodPost)
	api.HandleFunc("/chats/{chat}", chats.GetChat).Methods(http.MethodGet)
	api.HandleFunc("/chats/{chat}", chats.UpdateChat).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/chats/{chat}", chats.DeleteChat).Methods(http.MethodDelete)

	api.HandleFunc("/chats/{chat}/messages", messages.ListMessages).Methods(http.MethodGet)
	api.Handle("/chats/{chat}/messages", limitAI(messages.StoreMessage)).Methods(http.MethodPost)
	api.Handle("/chats/{chat}/messages/transcribe", limitAI(messages.Transcribe)).Methods(http.MethodPost)
	api.HandleFunc("/chats/{chat}/messages/read", messages.MarkRead).Methods(http.MethodPost)

	api.HandleFunc("/log", logs.LogClientEvent).Methods(http.MethodPost)

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
