package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectStorage defines the interface for photo file storage.
type ObjectStorage interface {
	// Upload stores an object under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object; returns ErrNotFound when missing
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Locate returns a human-readable location for key (absolute path or URL)
	Locate(key string) string
}

// Downloader is the read side of ObjectStorage.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// ReadAll downloads key fully into memory.
func ReadAll(ctx context.Context, s Downloader, key string) ([]byte, error) {
	rc, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
