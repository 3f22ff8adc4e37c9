package querycache

import (
	"context"
	"fmt"
)

// Get is the typed form of Store.Query. On a failed fetch it returns the
// previously cached value, if any, together with the error.
func Get[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	snap, err := s.Query(ctx, key, erase(fetch))
	value, ok := valueOf[T](snap)
	if !ok && err == nil {
		err = fmt.Errorf("cached %s holds %T", key, snap.Value)
	}
	return value, err
}

// Peek is the typed form of Store.Peek.
func Peek[T any](s *Store, key Key) (T, bool) {
	snap, ok := s.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	return valueOf[T](snap)
}

// Watch is the typed form of Store.Subscribe.
func Watch[T any](s *Store, key Key, fetch func(ctx context.Context) (T, error), fn func(Snapshot)) func() {
	return s.Subscribe(key, erase(fetch), fn)
}

func erase[T any](fetch func(ctx context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func valueOf[T any](snap Snapshot) (T, bool) {
	var zero T
	if !snap.HasValue {
		return zero, true
	}
	value, ok := snap.Value.(T)
	if !ok {
		return zero, false
	}
	return value, true
}
