package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCache keeps entries in one hash per fingerprint, so a changed
// analysis starts from an empty hash.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache returns a cache under prefix:fingerprint.
func NewRedisCache(client *redis.Client, prefix, fingerprint string) *RedisCache {
	return &RedisCache{client: client, key: prefix + ":" + fingerprint}
}

// Key returns the hash key holding the entries.
func (c *RedisCache) Key() string {
	return c.key
}

// Has reports whether name is cached.
func (c *RedisCache) Has(ctx context.Context, name string) (bool, error) {
	ok, err := c.client.HExists(ctx, c.key, name).Result()
	if err != nil {
		return false, fmt.Errorf("check cached %s: %w", name, err)
	}
	return ok, nil
}

// Get returns the entry for name.
func (c *RedisCache) Get(ctx context.Context, name string) (Entry, bool, error) {
	raw, err := c.client.HGet(ctx, c.key, name).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get cached %s: %w", name, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached %s: %w", name, err)
	}
	return e, true, nil
}

// Put replaces the entry for name.
func (c *RedisCache) Put(ctx context.Context, name string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", name, err)
	}
	if err := c.client.HSet(ctx, c.key, name, raw).Err(); err != nil {
		return fmt.Errorf("store entry %s: %w", name, err)
	}
	return nil
}

// Save is a no-op; every Put is already durable on the server.
func (c *RedisCache) Save(context.Context) error {
	return nil
}
