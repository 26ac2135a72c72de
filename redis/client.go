package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

// ErrNil is returned by reads of missing keys and by pops that timed out.
var ErrNil = goredis.Nil

// Client wraps a go-redis client with the operations engines and ledger
// stores need: plain keys, JSON values and list queues.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a client. The config must be enabled.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.Configuration("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("redis")
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)

	opts := &goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	durations := []struct {
		value string
		dst   *time.Duration
	}{
		{cfg.MinRetryBackoff, &opts.MinRetryBackoff},
		{cfg.MaxRetryBackoff, &opts.MaxRetryBackoff},
		{cfg.ConnMaxIdleTime, &opts.ConnMaxIdleTime},
		{cfg.PoolTimeout, &opts.PoolTimeout},
		{cfg.ConnMaxLifetime, &opts.ConnMaxLifetime},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if parsed, err := time.ParseDuration(d.value); err == nil {
			*d.dst = parsed
		}
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	opts.TLSConfig = tlsCfg

	log.Info("Redis client created", map[string]interface{}{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
		"tls":       tlsCfg != nil,
	})
	return &Client{rdb: goredis.NewClient(opts), log: log, cfg: cfg}, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return errors.Resource("redis ping failed", err)
	}
	if pong != "PONG" {
		return errors.Resource(fmt.Sprintf("unexpected redis ping response: %s", pong), nil)
	}
	return nil
}

// IsAvailable reports whether the client is open and the server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	return !closed && c.rdb.Ping(ctx).Err() == nil
}

// Get returns a string value. Missing keys return ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// GetBytes returns a binary value. Missing keys return ErrNil.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Set stores a value. A zero expiration keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// SetNX stores a value only if the key is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, expiration).Result()
}

// GetJSON decodes a JSON value into dst.
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := c.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON stores v as JSON.
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, expiration)
}

// Del deletes keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists counts the keys that exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// Expire sets a key's time to live.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// Push appends values to the head of a list queue.
func (c *Client) Push(ctx context.Context, queue string, values ...interface{}) error {
	return c.rdb.LPush(ctx, queue, values...).Err()
}

// Pop blocks until a value is available at the tail of one of the queues or
// timeout passes, and returns the queue and the value. A timeout returns
// ErrNil. Push and Pop together give FIFO order.
func (c *Client) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	kv, err := c.rdb.BRPop(ctx, timeout, queues...).Result()
	if err != nil {
		return "", nil, err
	}
	return kv[0], []byte(kv[1]), nil
}

// Len returns the length of a list queue.
func (c *Client) Len(ctx context.Context, queue string) (int64, error) {
	return c.rdb.LLen(ctx, queue).Result()
}

// SAdd adds members to a set.
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return c.rdb.SAdd(ctx, key, members...).Err()
}

// SRem removes members from a set.
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) error {
	return c.rdb.SRem(ctx, key, members...).Err()
}

// SMembers returns the members of a set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

// IsNil reports whether err is a missing key or an empty pop.
func IsNil(err error) bool {
	return stderrors.Is(err, goredis.Nil)
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
