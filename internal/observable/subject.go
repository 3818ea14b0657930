// Package observable provides a single-writer broadcast cell: it holds the
// latest value and pushes every change to its observers, in registration
// order, before Publish returns.
package observable

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Observer receives values published on a Subject.
type Observer[T any] func(T)

type subscription[T any] struct {
	id int64
	fn Observer[T]
}

// Subject holds a current value and broadcasts replacements.
//
// Deliveries are serialized. An observer may call Value, but must not
// Publish or Subscribe on the same subject from inside a notification.
type Subject[T any] struct {
	deliverMu sync.Mutex

	mu        sync.RWMutex
	value     T
	observers []subscription[T]
	nextID    int64

	name   string
	logger *zap.Logger
}

type Option func(*options)

type options struct {
	name   string
	logger *zap.Logger
}

// WithName labels the subject in log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewSubject[T any](initial T, opts ...Option) *Subject[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Subject[T]{
		value:  initial,
		name:   o.name,
		logger: o.logger,
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Len returns the number of live observers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Subscribe registers fn, delivers the current value to it and returns a
// function that removes the registration. Calling it twice is harmless.
func (s *Subject[T]) Subscribe(fn Observer[T]) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscription[T]{id: id, fn: fn})
	current := s.value
	s.mu.Unlock()

	s.notify(id, fn, current)

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// Publish replaces the current value and notifies every live observer.
func (s *Subject[T]) Publish(v T) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.value = v
	observers := make([]subscription[T], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		if !s.live(o.id) {
			continue // removed by an earlier observer in this round
		}
		s.notify(o.id, o.fn, v)
	}
}

func (s *Subject[T]) live(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		if o.id == id {
			return true
		}
	}
	return false
}

func (s *Subject[T]) unsubscribe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// notify isolates observer panics so one bad observer cannot starve the
// ones registered after it.
func (s *Subject[T]) notify(id int64, fn Observer[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panicked",
				zap.String("subject", s.name),
				zap.Int64("observer", id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn(v)
}

// Map subscribes observer to f applied to every value of s.
func Map[T, U any](s *Subject[T], f func(T) U, observer Observer[U]) func() {
	return s.Subscribe(func(v T) {
		observer(f(v))
	})
}
