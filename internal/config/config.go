package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for docchat-server.
type Config struct {
	// HTTP Server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9091"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Auth
	JWKSURL             string        `env:"JWKS_URL,notEmpty"`
	Issuer              string        `env:"ISSUER,notEmpty"`
	Audience            string        `env:"AUDIENCE"`
	RefreshJWKSInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	ClockSkew           time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// Generation provider (OpenAI-compatible endpoint)
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL,notEmpty"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ChatModel       string        `env:"CHAT_MODEL" envDefault:"gemini-1.5-pro"`
	ToolModel       string        `env:"TOOL_MODEL" envDefault:"gemini-1.5-flash"`
	MaxToolRounds   int           `env:"MAX_TOOL_ROUNDS" envDefault:"5"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Upload storage
	StorageBackend      string        `env:"STORAGE_BACKEND" envDefault:"local"` // "local" or "s3"
	LocalStoragePath    string        `env:"LOCAL_STORAGE_PATH" envDefault:"./upload-data"`
	LocalStorageBaseURL string        `env:"LOCAL_STORAGE_BASE_URL"`
	S3Endpoint          string        `env:"S3_ENDPOINT"`
	S3Region            string        `env:"S3_REGION" envDefault:"us-west-2"`
	S3Bucket            string        `env:"S3_BUCKET"`
	S3AccessKeyID       string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey         string        `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle      bool          `env:"S3_USE_PATH_STYLE" envDefault:"true"`
	S3PresignTTL        time.Duration `env:"S3_PRESIGN_TTL" envDefault:"720h"`
	MaxUploadBytes      int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"docchat-server"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"docchat"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("invalid JWKS_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.ProviderBaseURL); err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_BASE_URL: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 * 1024 * 1024
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 5
	}

	if cfg.IsS3Storage() {
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is s3")
		}
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MetricsAddr returns the metrics listen address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// IsLocalStorage returns true if the local filesystem backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) != "s3"
}

// IsS3Storage returns true if the S3 backend is configured.
func (c *Config) IsS3Storage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "s3"
}
