package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// Storage implements storage.Storage on a local directory.
type Storage struct {
	basePath string
}

// NewStorage creates the base directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.Storage("resolving base path", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Storage("creating base directory", err)
	}
	return &Storage{basePath: abs}, nil
}

// full resolves path below the base directory; ".." cannot escape it.
func (s *Storage) full(path string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}

// Upload writes to a temp file and renames it so readers never see a
// partial object.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	fullPath := s.full(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return errors.Storage("creating directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return errors.Storage("creating file", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return errors.Storage("writing "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Storage("writing "+path, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return errors.Storage("writing "+path, err)
	}
	return nil
}

func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.full(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("object", path)
		}
		return nil, errors.Storage("opening "+path, err)
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, path string) error {
	if err := os.Remove(s.full(path)); err != nil && !os.IsNotExist(err) {
		return errors.Storage("deleting "+path, err)
	}
	return nil
}

func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.full(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Storage("stat "+path, err)
	}
	return true, nil
}

func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo
	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			files = append(files, storage.FileInfo{Path: rel, Size: info.Size(), LastModified: info.ModTime()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("listing "+prefix, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

var _ storage.Storage = (*Storage)(nil)
