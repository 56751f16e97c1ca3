// File: cmd/server/providers.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/iyunix/go-voicechat/internal/config"
	"github.com/iyunix/go-voicechat/internal/handlers"
	"github.com/iyunix/go-voicechat/internal/ratelimit"
	"github.com/iyunix/go-voicechat/internal/repository"
	"github.com/iyunix/go-voicechat/internal/services"
	"github.com/iyunix/go-voicechat/internal/services/ai"
	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
	"github.com/iyunix/go-voicechat/internal/storage"
)

// Application aggregates everything main needs to run and stop the server.
type Application struct {
	Config    *config.Config
	Logger    *services.ZapLogger
	DB        *gorm.DB
	Server    *http.Server
	AILimiter *ratelimit.MemoryRateLimiter
}

func ProvideLogger(cfg *config.Config) (*services.ZapLogger, error) {
	return services.NewZapLogger("go-voicechat", cfg.IsProduction(), cfg.LogLevel)
}

func ProvideDatabase(cfg *config.Config) (*gorm.DB, error) {
	return repository.Open(cfg.DBDriver, cfg.DatabaseDSN)
}

func ProvideBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	return storage.NewLocalStore(cfg.StorageRoot)
}

func ProvideAIConfig(cfg *config.Config) *ai.Config {
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.ChatModel = cfg.OpenAIChatModel
	aiConfig.TranscriptionModel = cfg.OpenAITranscriptionModel
	aiConfig.LanguageModel = cfg.OpenAILanguageModel
	aiConfig.SystemPrompt = cfg.AISystemPrompt
	aiConfig.Temperature = cfg.AITemperature
	aiConfig.Timeout = cfg.AITimeout
	aiConfig.StreamTimeout = cfg.AIStreamTimeout
	return aiConfig
}

func ProvideGateway(aiConfig *ai.Config) (ai.Gateway, error) {
	return ai.NewOpenAIGateway(aiConfig)
}

func ProvideChatConfig(cfg *config.Config) *chatservice.Config {
	chatConfig := chatservice.DefaultConfig()
	chatConfig.ContextWindow = cfg.ContextWindow
	chatConfig.StreamBuffer = cfg.StreamBuffer
	chatConfig.MessagesPerPage = cfg.MessagesPerPage
	chatConfig.Retry = ai.DefaultRetryConfig()
	chatConfig.Retry.MaxAttempts = cfg.AIMaxAttempts
	return chatConfig
}

func ProvideAILimiter(cfg *config.Config) *ratelimit.MemoryRateLimiter {
	return ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAIConfig(cfg.AIRateLimit, cfg.AIRateWindow))
}

func ProvideRouterConfig(cfg *config.Config, db *gorm.DB, limiter *ratelimit.MemoryRateLimiter) handlers.RouterConfig {
	return handlers.RouterConfig{
		JWTSecret: []byte(cfg.JWTSecretKey),
		AILimiter: limiter,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// ProvideHTTPServer leaves WriteTimeout unset so streamed replies are not cut
// off; the AI timeout bounds them instead.
func ProvideHTTPServer(cfg *config.Config, router *mux.Router) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
