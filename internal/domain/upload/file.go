package upload

import (
	"context"
	"time"
)

// FileObject is the metadata of one stored attachment.
type FileObject struct {
	ID              string
	UserID          string
	Pathname        string
	StorageProvider string
	StorageKey      string
	ContentType     string
	Bytes           int64
	SHA256          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository persists upload metadata.
type Repository interface {
	Create(ctx context.Context, obj *FileObject) error
	FindByIDAndUserID(ctx context.Context, id, userID string) (*FileObject, error)
	ListByUserID(ctx context.Context, userID string) ([]*FileObject, error)
}
