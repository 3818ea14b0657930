// Package favorites tracks the set of favorited product ids.
package favorites

import (
	"context"
	"slices"
	"sync"

	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/fjod/artisan_market/internal/observable"
	"go.uber.org/zap"
)

type Persister interface {
	Save(ctx context.Context, key string, v any) error
	Load(ctx context.Context, key string, dst any) bool
	Remove(ctx context.Context, key string) error
}

type Store struct {
	mu      sync.Mutex
	ids     *observable.Subject[[]int64]
	persist Persister
	logger  *zap.Logger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(ctx context.Context, persist Persister, opts ...Option) *Store {
	s := &Store{persist: persist, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	var loaded []int64
	if !persist.Load(ctx, kvstore.KeyFavorites, &loaded) {
		loaded = nil
	}
	s.ids = observable.NewSubject(dedup(loaded),
		observable.WithName("favorites"), observable.WithLogger(s.logger))
	return s
}

func (s *Store) IsFavorite(id int64) bool {
	return slices.Contains(s.ids.Value(), id)
}

// Toggle removes id when present, otherwise appends it.
func (s *Store) Toggle(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := slices.Clone(s.ids.Value())
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, id)
	}

	s.ids.Publish(ids)
	if err := s.persist.Save(ctx, kvstore.KeyFavorites, ids); err != nil {
		s.logger.Error("favorites save failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids.Publish([]int64{})
	if err := s.persist.Remove(ctx, kvstore.KeyFavorites); err != nil {
		s.logger.Error("favorites clear failed", zap.Error(err))
		return err
	}
	return nil
}

// IDs returns the favorited ids in the order they were added.
func (s *Store) IDs() []int64 {
	return slices.Clone(s.ids.Value())
}

func (s *Store) Subscribe(fn observable.Observer[[]int64]) func() {
	return s.ids.Subscribe(fn)
}

func dedup(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
