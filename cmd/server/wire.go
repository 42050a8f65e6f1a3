//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"docchat-server/internal/config"
	"docchat-server/internal/domain/chat"
	"docchat-server/internal/domain/docqa"
	"docchat-server/internal/domain/upload"
	"docchat-server/internal/infrastructure/auth"
	"docchat-server/internal/infrastructure/database"
	"docchat-server/internal/infrastructure/database/repository/chatrepo"
	"docchat-server/internal/infrastructure/database/repository/filerepo"
	"docchat-server/internal/infrastructure/logger"
	"docchat-server/internal/infrastructure/storage"
	"docchat-server/internal/interfaces/httpserver"
	"docchat-server/internal/interfaces/httpserver/handlers/chathandler"
	"docchat-server/internal/interfaces/httpserver/handlers/uploadhandler"
	"docchat-server/internal/interfaces/httpserver/routes"
	"docchat-server/internal/utils/httpclients"
	chatclient "docchat-server/internal/utils/httpclients/chat"
)

var domainSet = wire.NewSet(
	chatrepo.NewRepository,
	wire.Bind(new(chat.Repository), new(*chatrepo.Repository)),
	chat.NewChatService,
	filerepo.NewRepository,
	wire.Bind(new(upload.Repository), new(*filerepo.Repository)),
	provideUploadService,
	provideDocQAService,
	docqa.NewToolset,
)

var httpSet = wire.NewSet(
	chathandler.NewChatHandler,
	wire.Bind(new(chathandler.Streamer), new(*chatclient.CompletionClient)),
	wire.Bind(new(chathandler.ToolExecutor), new(*docqa.Toolset)),
	uploadhandler.NewUploadHandler,
	routes.NewRoutes,
	httpserver.New,
)

// BuildApplication assembles the service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		provideLogger,
		auth.NewValidator,
		provideDatabaseConfig,
		database.Connect,
		provideStorage,
		provideCompletionClient,
		domainSet,
		httpSet,
		NewApplication,
	)
	return nil, nil
}

func provideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

func provideDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DatabaseURL: cfg.DatabaseURL,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnLifetime,
		LogLevel:    gormlogger.Warn,
	}
}

func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Storage, error) {
	return newStorage(ctx, cfg, log)
}

func provideCompletionClient(cfg *config.Config) *chatclient.CompletionClient {
	return chatclient.NewCompletionClient(
		httpclients.NewClient("llm-provider"),
		"llm-provider",
		cfg.ProviderBaseURL,
	)
}

func provideDocQAService(cfg *config.Config, client *chatclient.CompletionClient) *docqa.Service {
	return docqa.NewService(client, cfg.ProviderAPIKey, cfg.ToolModel)
}

func provideUploadService(cfg *config.Config, repo upload.Repository, store storage.Storage, log zerolog.Logger) *upload.Service {
	return upload.NewService(repo, store, cfg.StorageBackend, cfg.MaxUploadBytes, log)
}
