package kvstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisBackend struct {
	client  *redis.Client
	prefix  string
	baseTTL time.Duration
}

type RedisOption func(*RedisBackend)

// WithTTL makes entries expire after ttl plus up to four minutes of jitter.
// Zero keeps entries forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisBackend) { r.baseTTL = ttl }
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisBackend) { r.prefix = prefix }
}

func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{client: client, prefix: "artisan"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	var ttl time.Duration
	if r.baseTTL > 0 {
		jitter := time.Duration(rand.Intn(5)) * time.Minute
		ttl = r.baseTTL + jitter
	}
	if err := r.client.Set(ctx, r.cacheKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
