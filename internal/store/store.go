// Package store provides the TTL-bounded stores behind promotions and storm
// words. Implementations are safe for concurrent use.
package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("item not found")

// Store is an insertion-ordered collection with lazy expiry.
type Store[T any] interface {
	Insert(ctx context.Context, item T) error
	List(ctx context.Context) ([]T, error)
	// EvictExpired removes every expired item and returns what it removed.
	EvictExpired(ctx context.Context, now time.Time) ([]T, error)
}

// Mutable is a Store whose items can be updated in place by ID.
type Mutable[T any] interface {
	Store[T]
	Update(ctx context.Context, id string, fn func(*T)) (T, error)
}

// ExpiryFunc reports whether item is expired at now.
type ExpiryFunc[T any] func(item T, now time.Time) bool

// Options configures a Memory store.
type Options[T any] struct {
	// ID extracts the item key.
	ID func(T) string
	// Expired decides lazy eviction.
	Expired ExpiryFunc[T]
	// Capacity trims the oldest items by insertion order once exceeded. Zero means unbounded.
	Capacity int
}

// Memory is a thread-safe in-memory Store.
type Memory[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	opts  Options[T]
}

func NewMemory[T any](opts Options[T]) *Memory[T] {
	return &Memory[T]{
		items: make(map[string]T),
		order: make([]string, 0),
		opts:  opts,
	}
}

// Insert appends item. Re-inserting an existing ID replaces it and keeps its position.
func (s *Memory[T]) Insert(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.opts.ID(item)
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item

	if s.opts.Capacity > 0 && len(s.order) > s.opts.Capacity {
		drop := len(s.order) - s.opts.Capacity
		for _, old := range s.order[:drop] {
			delete(s.items, old)
		}
		s.order = append(s.order[:0:0], s.order[drop:]...)
	}
	return nil
}

// List returns all items in insertion order.
func (s *Memory[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

// Get retrieves an item by ID.
func (s *Memory[T]) Get(ctx context.Context, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Update applies fn to the stored item under the write lock.
func (s *Memory[T]) Update(ctx context.Context, id string, fn func(*T)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	fn(&item)
	s.items[id] = item
	return item, nil
}

func (s *Memory[T]) EvictExpired(ctx context.Context, now time.Time) ([]T, error) {
	if s.opts.Expired == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []T
	kept := s.order[:0]
	for _, id := range s.order {
		item := s.items[id]
		if s.opts.Expired(item, now) {
			evicted = append(evicted, item)
			delete(s.items, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return evicted, nil
}

// Len returns the number of stored items, expired or not.
func (s *Memory[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// OlderThan builds an ExpiryFunc that expires items once now-ts exceeds ttl.
// inclusive also expires items exactly ttl old.
func OlderThan[T any](ts func(T) time.Time, ttl time.Duration, inclusive bool) ExpiryFunc[T] {
	return func(item T, now time.Time) bool {
		age := now.Sub(ts(item))
		if inclusive {
			return age >= ttl
		}
		return age > ttl
	}
}
