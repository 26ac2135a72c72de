package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kbukum/automl/errors"
)

// TypedStore stores JSON-encoded values of one type under a key prefix.
type TypedStore[C any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a TypedStore. Keys become "<keyPrefix>:<key>".
func NewTypedStore[C any](client *Client, keyPrefix string) *TypedStore[C] {
	return &TypedStore[C]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Key returns the full redis key of key.
func (s *TypedStore[C]) Key(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load decodes the value at key. A missing key returns (nil, nil).
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.GetBytes(ctx, s.Key(key))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, errors.Storage("load "+key, err)
	}

	var val C
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, errors.Storage("decode "+key, err)
	}
	return &val, nil
}

// Save encodes val at key. A zero ttl keeps it forever.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return errors.Storage("encode "+key, err)
	}
	if err := s.client.Set(ctx, s.Key(key), raw, ttl); err != nil {
		return errors.Storage("save "+key, err)
	}
	return nil
}

// Delete removes key.
func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.Key(key)); err != nil {
		return errors.Storage("delete "+key, err)
	}
	return nil
}
