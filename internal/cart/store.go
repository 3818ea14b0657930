// Package cart holds the shopping cart: an ordered list of items, unique by
// product id, published to subscribers and persisted under the "cart" key.
package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/fjod/artisan_market/internal/observable"
	"go.uber.org/zap"
)

// Persister is the part of kvstore.Bridge the store needs.
type Persister interface {
	Save(ctx context.Context, key string, v any) error
	Load(ctx context.Context, key string, dst any) bool
	Remove(ctx context.Context, key string) error
}

type Store struct {
	mu      sync.Mutex // serializes mutations
	items   *observable.Subject[[]domain.CartItem]
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

// New loads the persisted cart. Absent or unreadable state yields an empty
// cart.
func New(ctx context.Context, persist Persister, opts ...Option) *Store {
	s := &Store{persist: persist, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	var loaded []domain.CartItem
	if !persist.Load(ctx, kvstore.KeyCart, &loaded) {
		loaded = nil
	}
	s.items = observable.NewSubject(normalize(loaded),
		observable.WithName("cart"), observable.WithLogger(s.logger))
	return s
}

// Add increments the quantity of the matching item, or appends the product
// with quantity 1.
func (s *Store) Add(ctx context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := slices.Clone(s.items.Value())
	if i := indexOf(items, p.ID); i >= 0 {
		items[i].Quantity++
	} else {
		items = append(items, domain.CartItem{
			ID:       p.ID,
			Title:    p.Title,
			Price:    p.Price,
			Image:    p.Image,
			Quantity: 1,
		})
	}
	return s.commit(ctx, items)
}

// Remove drops the item with the given id. The cart is published and
// persisted even when nothing was removed.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(ctx, id)
}

// SetQuantity sets the quantity of an existing item. A quantity of zero or
// less removes the item; an unknown id is ignored.
func (s *Store) SetQuantity(ctx context.Context, id int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		return s.remove(ctx, id)
	}

	items := s.items.Value()
	i := indexOf(items, id)
	if i < 0 {
		return nil
	}
	items = slices.Clone(items)
	items[i].Quantity = qty
	return s.commit(ctx, items)
}

// Clear empties the cart and erases the persisted state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Publish([]domain.CartItem{})
	if err := s.persist.Remove(ctx, kvstore.KeyCart); err != nil {
		s.logger.Error("cart clear failed", zap.Error(err))
		return err
	}
	return nil
}

// Items returns a copy of the current items in insertion order.
func (s *Store) Items() []domain.CartItem {
	return slices.Clone(s.items.Value())
}

func (s *Store) ItemCount() int {
	return count(s.items.Value())
}

func (s *Store) Total() float64 {
	return total(s.items.Value())
}

// Subscribe delivers the current items immediately and then every change.
// Observers must not mutate the slice or call back into the store's
// mutating methods.
func (s *Store) Subscribe(fn observable.Observer[[]domain.CartItem]) func() {
	return s.items.Subscribe(fn)
}

func (s *Store) SubscribeCount(fn observable.Observer[int]) func() {
	return observable.Map(s.items, count, fn)
}

func (s *Store) SubscribeTotal(fn observable.Observer[float64]) func() {
	return observable.Map(s.items, total, fn)
}

func (s *Store) remove(ctx context.Context, id int64) error {
	items := slices.DeleteFunc(slices.Clone(s.items.Value()), func(it domain.CartItem) bool {
		return it.ID == id
	})
	return s.commit(ctx, items)
}

func (s *Store) commit(ctx context.Context, items []domain.CartItem) error {
	s.items.Publish(items)
	if err := s.persist.Save(ctx, kvstore.KeyCart, items); err != nil {
		s.logger.Error("cart save failed", zap.Error(err))
		return err
	}
	return nil
}

func indexOf(items []domain.CartItem, id int64) int {
	return slices.IndexFunc(items, func(it domain.CartItem) bool { return it.ID == id })
}

func count(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func total(items []domain.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return sum
}

// normalize keeps the first occurrence of each id and drops non-positive
// quantities.
func normalize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if it.Quantity <= 0 || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
