package kvstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedBackend reads through a cache in front of a durable primary and
// invalidates the cache on every write. A fill read from the primary before
// a write is never stored after it.
type CachedBackend struct {
	primary Backend
	cache   Backend
	logger  *zap.Logger
	sfg     singleflight.Group // collapses concurrent misses for the same key
	wg      sync.WaitGroup

	mu  sync.Mutex // orders cache fills against invalidations
	gen map[string]uint64
}

func NewCachedBackend(primary, cache Backend, logger *zap.Logger) *CachedBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedBackend{primary: primary, cache: cache, logger: logger, gen: make(map[string]uint64)}
}

func (c *CachedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		data, err := c.cache.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache get error", zap.String("key", key), zap.Error(err))
		}

		gen := c.generation(key)
		data, err = c.primary.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.fill(key, data, gen)
		}()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *CachedBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := c.primary.Put(ctx, key, value); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

func (c *CachedBackend) Delete(ctx context.Context, key string) error {
	if err := c.primary.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

// Close waits for pending cache fills, then closes the cache and the primary.
func (c *CachedBackend) Close() error {
	c.wg.Wait()
	return errors.Join(c.cache.Close(), c.primary.Close())
}

func (c *CachedBackend) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[key]
}

// fill stores data unless key was written since gen was taken.
func (c *CachedBackend) fill(key string, data []byte, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[key] != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.cache.Put(ctx, key, data); err != nil {
		c.logger.Warn("cache set error", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedBackend) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[key]++

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidate error", zap.String("key", key), zap.Error(err))
	}
}
