package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/artisan_market/internal/config"
	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openBackend builds the storage chain described by c: the primary
// backend, optionally fronted by a Redis cache, optionally behind a
// circuit breaker.
func openBackend(ctx context.Context, c config.StorageConfig, logger *zap.Logger) (kvstore.Backend, error) {
	var (
		primary kvstore.Backend
		err     error
	)
	switch c.Backend {
	case config.BackendMemory:
		primary = kvstore.NewMemoryBackend()
	case config.BackendSQLite:
		primary, err = kvstore.OpenSQLite(c.SQLitePath)
	case config.BackendPostgres:
		primary, err = kvstore.OpenPostgres(ctx, c.PostgresDSN)
	case config.BackendRedis:
		primary, err = openRedis(ctx, c, 0)
	case config.BackendMongo:
		primary, err = openMongo(ctx, c)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalid, c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", c.Backend, err)
	}
	logger.Info("storage backend ready", zap.String("backend", c.Backend))

	backend := primary
	if c.CacheRedis && c.Backend != config.BackendRedis && c.Backend != config.BackendMemory {
		cache, err := openRedis(ctx, c, c.RedisTTL)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open redis cache: %w", err), primary.Close())
		}
		backend = kvstore.NewCachedBackend(primary, cache, logger)
		logger.Info("redis cache enabled", zap.String("addr", c.RedisAddr))
	}

	if c.Breaker.Enabled {
		backend = kvstore.NewBreakerBackend(backend, kvstore.BreakerSettings{
			Name:             "storage-" + c.Backend,
			MaxRequests:      c.Breaker.MaxRequests,
			Interval:         c.Breaker.Interval,
			Timeout:          c.Breaker.Timeout,
			FailureThreshold: c.Breaker.FailureThreshold,
		}, logger)
	}
	return backend, nil
}

// openRedis connects to Redis. A zero ttl keeps entries until deleted.
func openRedis(ctx context.Context, c config.StorageConfig, ttl time.Duration) (*kvstore.RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return kvstore.NewRedisBackend(client, kvstore.WithTTL(ttl)), nil
}

func openMongo(ctx context.Context, c config.StorageConfig) (*kvstore.MongoBackend, error) {
	db, err := kvstore.ConnectMongoDB(ctx, c.MongoURI, c.MongoDB)
	if err != nil {
		return nil, err
	}
	backend, err := kvstore.NewMongoBackend(ctx, db)
	if err != nil {
		_ = db.Client().Disconnect(ctx)
		return nil, err
	}
	return backend, nil
}

// newBridge wraps the backend with the configured namespace.
func newBridge(backend kvstore.Backend, c config.StorageConfig, logger *zap.Logger) *kvstore.Bridge {
	opts := []kvstore.BridgeOption{kvstore.WithBridgeLogger(logger)}
	if c.Namespace != "" {
		opts = append(opts, kvstore.WithNamespace(c.Namespace))
	}
	return kvstore.NewBridge(backend, opts...)
}
