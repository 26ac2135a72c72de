package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Storage is a flat object store keyed by slash-separated paths.
type Storage interface {
	// Upload writes reader to path, replacing any previous object.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download opens the object at path. The caller closes the reader.
	// A missing object yields an errors.ErrCodeNotFound error.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the objects whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
