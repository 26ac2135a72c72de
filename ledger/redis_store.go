package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/redis"
)

// RedisStore keeps snapshots as JSON values under "<prefix>:ledger:<id>"
// and tracks the ids in a set.
type RedisStore struct {
	client    *redis.Client
	snapshots *redis.TypedStore[Snapshot]
	index     string
	ttl       time.Duration
}

// NewRedisStore creates a store; a zero ttl keeps snapshots forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "automl"
	}
	return &RedisStore{
		client:    client,
		snapshots: redis.NewTypedStore[Snapshot](client, prefix+":ledger"),
		index:     prefix + ":ledgers",
		ttl:       ttl,
	}
}

func (r *RedisStore) Save(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := r.snapshots.Save(ctx, s.SearchID, s, r.ttl); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.index, s.SearchID); err != nil {
		return errors.Storage("index "+s.SearchID, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, searchID string) (*Snapshot, error) {
	s, err := r.snapshots.Load(ctx, searchID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.NotFound("ledger snapshot", searchID)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// List drops ids whose snapshot expired.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.index)
	if err != nil {
		return nil, errors.Storage("list ledgers", err)
	}
	var ids []string
	for _, id := range members {
		n, err := r.client.Exists(ctx, r.snapshots.Key(id))
		if err != nil {
			return nil, errors.Storage("list ledgers", err)
		}
		if n == 0 {
			_ = r.client.SRem(ctx, r.index, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisStore) Delete(ctx context.Context, searchID string) error {
	if err := r.snapshots.Delete(ctx, searchID); err != nil {
		return err
	}
	if err := r.client.SRem(ctx, r.index, searchID); err != nil {
		return errors.Storage("unindex "+searchID, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
