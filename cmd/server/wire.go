//go:build wireinject
// +build wireinject

// File: cmd/server/wire.go
package main

import (
	"github.com/google/wire"

	"github.com/iyunix/go-voicechat/internal/config"
	"github.com/iyunix/go-voicechat/internal/handlers"
	"github.com/iyunix/go-voicechat/internal/repository/chat"
	"github.com/iyunix/go-voicechat/internal/repository/message"
	"github.com/iyunix/go-voicechat/internal/services"
	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
)

var loggerSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(services.Logger), new(*services.ZapLogger)),
	wire.Bind(new(chatservice.Logger), new(*services.ZapLogger)),
	wire.Bind(new(handlers.Logger), new(*services.ZapLogger)),
)

var chatSet = wire.NewSet(
	ProvideChatConfig,
	chat.NewChatRepository,
	message.NewMessageRepository,
	chatservice.NewOrchestrator,
	chatservice.NewStreamRelay,
	wire.Bind(new(chatservice.Responder), new(*chatservice.Orchestrator)),
	wire.Bind(new(chatservice.Relayer), new(*chatservice.StreamRelay)),
	services.NewChatService,
)

var httpSet = wire.NewSet(
	handlers.NewChatHandler,
	handlers.NewMessageHandler,
	handlers.NewLogHandler,
	ProvideAILimiter,
	ProvideRouterConfig,
	handlers.NewRouter,
	ProvideHTTPServer,
)

func InitializeApplication(cfg *config.Config) (*Application, error) {
	wire.Build(
		loggerSet,
		ProvideDatabase,
		ProvideBlobStore,
		ProvideAIConfig,
		ProvideGateway,
		chatSet,
		httpSet,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
