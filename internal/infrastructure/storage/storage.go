package storage

import (
	"context"
	"io"
)

// Storage abstracts where uploaded attachments live. URLFor returns a
// browser-resolvable URL when the backend has one, or an empty string for
// backends whose objects are served through the file route instead.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	URLFor(ctx context.Context, key string) (string, error)
	Health(ctx context.Context) error
}
