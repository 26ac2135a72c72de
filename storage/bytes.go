package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/kbukum/automl/errors"
)

// PutBytes uploads data to path.
func PutBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// GetBytes downloads the object at path into memory.
func GetBytes(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Storage("reading "+path, err)
	}
	return data, nil
}
