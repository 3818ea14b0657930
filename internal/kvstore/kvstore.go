// Package kvstore persists store state as JSON documents under logical
// keys. A Backend moves raw bytes; a Bridge adds the JSON codec and the
// "treat unreadable state as absent" policy.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	KeyCart      = "cart"
	KeyFavorites = "favorites"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Backend is a byte-oriented key-value store.
// Get returns ErrNotFound when the key is absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Bridge struct {
	backend   Backend
	namespace string
	logger    *zap.Logger
}

type BridgeOption func(*Bridge)

// WithNamespace prefixes every key, e.g. with a user id.
func WithNamespace(ns string) BridgeOption {
	return func(b *Bridge) { b.namespace = ns }
}

func WithBridgeLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBridge(backend Backend, opts ...BridgeOption) *Bridge {
	b := &Bridge{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Save stores v as JSON under key, overwriting what was there.
func (b *Bridge) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := b.backend.Put(ctx, b.key(key), data); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Load decodes the value stored under key into dst and reports whether it
// did. Absent, unreachable and malformed values all report false; dst may
// be partially written in the malformed case, so callers discard it.
func (b *Bridge) Load(ctx context.Context, key string, dst any) bool {
	data, err := b.backend.Get(ctx, b.key(key))
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		b.logger.Warn("storage load error", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		b.logger.Warn("discarding malformed state", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove erases the value stored under key. Removing an absent key is not
// an error.
func (b *Bridge) Remove(ctx context.Context, key string) error {
	err := b.backend.Delete(ctx, b.key(key))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: remove %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

func (b *Bridge) key(k string) string {
	if b.namespace == "" {
		return k
	}
	return b.namespace + ":" + k
}
