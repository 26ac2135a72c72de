package ledger

import (
	"context"
	"time"

	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/database"
	"github.com/kbukum/automl/encryption"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
	"github.com/kbukum/automl/redis"
	"github.com/kbukum/automl/storage"
	_ "github.com/kbukum/automl/storage/local" // registers the local provider
	_ "github.com/kbukum/automl/storage/s3"    // registers the s3 provider
)

// Store persists snapshots by search id.
type Store interface {
	// Save writes s, replacing an earlier snapshot of the same search.
	Save(ctx context.Context, s *Snapshot) error
	// Load returns the snapshot of a search, or a NotFound error.
	Load(ctx context.Context, searchID string) (*Snapshot, error)
	// List returns the saved search ids in ascending order.
	List(ctx context.Context) ([]string, error)
	// Delete removes a snapshot. Deleting a missing one is not an error.
	Delete(ctx context.Context, searchID string) error
}

// OpenStore builds the store selected by cfg. The redis client is only
// used by the redis store. It returns nil for the "none" store.
func OpenStore(ctx context.Context, cfg config.LedgerConfig, client *redis.Client, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Get("ledger")
	}
	if cfg.EncryptionKey != "" && cfg.Store != config.StoreLocal && cfg.Store != config.StoreS3 {
		return nil, errors.Configurationf("ledger encryption is only supported by the local and s3 stores, not %q", cfg.Store)
	}
	switch cfg.Store {
	case "", config.StoreNone:
		return nil, nil
	case config.StoreLocal, config.StoreS3:
		provider := storage.ProviderLocal
		if cfg.Store == config.StoreS3 {
			provider = storage.ProviderS3
		}
		blobs, err := storage.New(ctx, storage.Config{
			Provider: provider,
			BasePath: cfg.Path,
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		}, log)
		if err != nil {
			return nil, err
		}
		store := NewBlobStore(blobs, cfg.Prefix)
		if cfg.EncryptionKey != "" {
			sealer, err := encryption.New(cfg.EncryptionKey, encryption.WithAlgorithm(encryption.Algorithm(cfg.Encryption)))
			if err != nil {
				return nil, errors.Configuration("ledger encryption").WithCause(err)
			}
			store.WithSealer(sealer)
		}
		return store, nil
	case config.StoreRedis:
		if client == nil {
			return nil, errors.Configuration("the redis ledger store needs a redis client")
		}
		var ttl time.Duration
		if cfg.TTL != "" {
			d, err := config.ParseMaxTime(cfg.TTL)
			if err != nil {
				return nil, err
			}
			ttl = d
		}
		return NewRedisStore(client, cfg.Prefix, ttl), nil
	case config.StoreSQL:
		db, err := database.Open(ctx, database.Config{Enabled: true, DSN: cfg.DSN}, log)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, errors.Configurationf("unknown ledger store %q", cfg.Store)
}
