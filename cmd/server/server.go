package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
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
	"docchat-server/internal/infrastructure/observability"
	"docchat-server/internal/infrastructure/storage"
	"docchat-server/internal/interfaces/httpserver"
	"docchat-server/internal/interfaces/httpserver/handlers/chathandler"
	"docchat-server/internal/interfaces/httpserver/handlers/uploadhandler"
	"docchat-server/internal/interfaces/httpserver/routes"
	"docchat-server/internal/utils/httpclients"
	chatclient "docchat-server/internal/utils/httpclients/chat"
)

// Application ties the HTTP server to the process lifecycle.
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{httpServer: httpServer, log: log}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.DatabaseURL,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnLifetime,
		LogLevel:    gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if cfg.AutoMigrate {
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	completionClient := chatclient.NewCompletionClient(
		httpclients.NewClient("llm-provider"),
		"llm-provider",
		cfg.ProviderBaseURL,
	)

	chatService := chat.NewChatService(chatrepo.NewRepository(db))
	docqaService := docqa.NewService(completionClient, cfg.ProviderAPIKey, cfg.ToolModel)
	toolset := docqa.NewToolset(docqaService)
	uploadService := upload.NewService(filerepo.NewRepository(db), store, cfg.StorageBackend, cfg.MaxUploadBytes, log)

	chatHandler := chathandler.NewChatHandler(chatService, completionClient, toolset, cfg)
	uploadHandler := uploadhandler.NewUploadHandler(uploadService)

	apiRoutes := routes.NewRoutes(chatHandler, uploadHandler, authValidator)
	server := httpserver.New(cfg, log, apiRoutes, store)
	app := NewApplication(server, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Storage, error) {
	if cfg.IsS3Storage() {
		return storage.NewS3Storage(ctx, cfg, log)
	}
	return storage.NewLocalStorage(cfg, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
