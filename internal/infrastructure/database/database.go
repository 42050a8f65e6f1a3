package database

import (
	"context"
	"time"

	"docchat-server/internal/infrastructure/logger"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docchat-server/internal/infrastructure/database/entities"
)

// Config holds database configuration
type Config struct {
	DatabaseURL string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// Connect creates a new database connection with the given configuration
func Connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		log := logger.GetLogger()
		log.Error().
			Str("error_code", "7f21da9b-3c65-4de2-a1b8-54fbc20d7a31").
			Err(err).
			Msg("unable to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	log := logger.GetLogger()
	log.Info().Msg("Successfully connected to database")
	return db, nil
}

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.ChatRecord{}, &entities.FileObject{}); err != nil {
		return err
	}
	log.Info().Msg("applied chat and file migrations")
	return nil
}
