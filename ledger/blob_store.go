package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/kbukum/automl/encryption"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/storage"
)

const (
	snapshotExt = ".json"
	sealedExt   = ".sealed"
)

// BlobStore keeps one JSON object per search under a path prefix of a
// storage backend. With a sealer the objects are encrypted.
type BlobStore struct {
	blobs  storage.Storage
	prefix string
	sealer encryption.Sealer
	ext    string
}

// NewBlobStore stores snapshots as "<prefix>/<search id>.json".
func NewBlobStore(blobs storage.Storage, prefix string) *BlobStore {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BlobStore{blobs: blobs, prefix: prefix, ext: snapshotExt}
}

// WithSealer encrypts snapshots as "<prefix>/<search id>.sealed".
func (b *BlobStore) WithSealer(s encryption.Sealer) *BlobStore {
	b.sealer = s
	b.ext = sealedExt
	return b
}

func (b *BlobStore) path(searchID string) string {
	return b.prefix + searchID + b.ext
}

func (b *BlobStore) Save(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := Encode(s)
	if err != nil {
		return err
	}
	if b.sealer != nil {
		if raw, err = b.sealer.Seal(raw); err != nil {
			return errors.Storage("seal snapshot "+s.SearchID, err)
		}
	}
	return storage.PutBytes(ctx, b.blobs, b.path(s.SearchID), raw)
}

func (b *BlobStore) Load(ctx context.Context, searchID string) (*Snapshot, error) {
	raw, err := storage.GetBytes(ctx, b.blobs, b.path(searchID))
	if err != nil {
		return nil, err
	}
	if b.sealer != nil {
		if raw, err = b.sealer.Open(raw); err != nil {
			return nil, errors.Storage("open snapshot "+searchID, err)
		}
	}
	return Decode(raw)
}

func (b *BlobStore) List(ctx context.Context) ([]string, error) {
	files, err := b.blobs.List(ctx, b.prefix)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, f := range files {
		rest := strings.TrimPrefix(f.Path, b.prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, b.ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(rest, b.ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (b *BlobStore) Delete(ctx context.Context, searchID string) error {
	return b.blobs.Delete(ctx, b.path(searchID))
}

var _ Store = (*BlobStore)(nil)
