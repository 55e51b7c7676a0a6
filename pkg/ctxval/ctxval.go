// Package ctxval lets inner handlers report values back to the middleware
// that wrapped the request context.
package ctxval

import (
	"context"
	"sync"
)

// Key is a typed slot. Keys compare by identity of the name they were
// created with.
type Key[V any] struct {
	name string
}

func NewKey[V any](name string) Key[V] {
	return Key[V]{name: name}
}

func (k Key[V]) String() string {
	return k.name
}

type bagKey struct{}

type bag struct {
	mu     sync.Mutex
	values map[string]any
}

// Wrap attaches an empty bag to ctx. Wrapping twice keeps the first bag.
func Wrap(ctx context.Context) context.Context {
	if _, ok := from(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, bagKey{}, &bag{values: map[string]any{}})
}

// Set reports false when ctx was never wrapped.
func Set[V any](ctx context.Context, k Key[V], v V) bool {
	b, ok := from(ctx)
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[k.name] = v
	return true
}

func Get[V any](ctx context.Context, k Key[V]) (V, bool) {
	var zero V
	b, ok := from(ctx)
	if !ok {
		return zero, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[k.name].(V)
	if !ok {
		return zero, false
	}
	return v, true
}

func from(ctx context.Context) (*bag, bool) {
	b, ok := ctx.Value(bagKey{}).(*bag)
	return b, ok
}
