package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"docchat-server/internal/config"
)

// LocalStorage stores attachments on the local filesystem.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		return nil, fmt.Errorf("LOCAL_STORAGE_PATH is required for the local storage backend")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSpace(cfg.LocalStorageBaseURL),
		log:      logger,
	}

	logger.Info().
		Str("path", basePath).
		Str("base_url", storage.baseURL).
		Msg("local storage initialized")

	return storage, nil
}

// Upload stores a file to the local filesystem.
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int64("bytes", written).
		Msg("file uploaded to local storage")

	return nil
}

// URLFor returns a direct URL to the file when LocalStorageBaseURL is set.
// Without a base URL it returns empty and objects are served through the
// authenticated file route.
func (l *LocalStorage) URLFor(ctx context.Context, key string) (string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", key)
	}

	if l.baseURL != "" {
		urlKey := filepath.ToSlash(key)
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(l.baseURL, "/"), urlKey), nil
	}

	return "", nil
}

// Download reads a file from the local filesystem.
func (l *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", key)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fullPath)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return file, contentType, nil
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}
