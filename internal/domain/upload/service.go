package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"docchat-server/internal/infrastructure/storage"
	"docchat-server/internal/utils/idgen"
	"docchat-server/internal/utils/platformerrors"
)

// StoredFile is the client-facing result of one stored attachment.
type StoredFile struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// Service stores uploaded attachments and records their metadata. Content
// types come from sniffing the payload, not from the client.
type Service struct {
	repo     Repository
	store    storage.Storage
	provider string
	maxBytes int64
	log      zerolog.Logger
}

func NewService(repo Repository, store storage.Storage, provider string, maxBytes int64, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		provider: provider,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "upload-service").Logger(),
	}
}

// Store persists one attachment and returns its browser-resolvable location.
func (s *Service) Store(ctx context.Context, userID, filename string, data []byte) (*StoredFile, error) {
	if len(data) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "file is empty", nil, "")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes), nil, "")
	}

	contentType := mimetype.Detect(data).String()

	fileID, err := idgen.GenerateSecureID("file", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate file ID")
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s/%s/%s", userID, ulid.Make().String(), filename)
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to store file")
	}

	url, err := s.store.URLFor(ctx, key)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to resolve file URL")
	}
	if url == "" {
		// Backend has no direct URL; the object is served through the
		// authenticated file route.
		url = "/api/files/" + fileID
	}

	record := &FileObject{
		ID:              fileID,
		UserID:          userID,
		Pathname:        filename,
		StorageProvider: s.provider,
		StorageKey:      key,
		ContentType:     contentType,
		Bytes:           int64(len(data)),
		SHA256:          hex.EncodeToString(sum[:]),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record file metadata")
	}

	s.log.Debug().
		Str("file_id", fileID).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Msg("attachment stored")

	return &StoredFile{
		URL:         url,
		Pathname:    filename,
		ContentType: contentType,
	}, nil
}

// Open returns the content of one stored attachment for the file route. The
// lookup is scoped to the owner, so someone else's file looks absent.
func (s *Service) Open(ctx context.Context, userID, fileID string) (io.ReadCloser, *FileObject, error) {
	record, err := s.repo.FindByIDAndUserID(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "file not found", err, "")
		}
		return nil, nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load file metadata")
	}

	body, _, err := s.store.Download(ctx, record.StorageKey)
	if err != nil {
		return nil, nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to read file")
	}
	return body, record, nil
}
