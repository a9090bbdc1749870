// Package cache provides a read-through LRU cache with singleflight coalescing.
package cache

import (
	"context"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LoaderCache caches values loaded on demand. A burst of concurrent misses for
// the same key runs the loader once; the other callers wait for and share that
// result. Keys are serialized to strings with keyFn before they reach the LRU
// and the singleflight group.
type LoaderCache[K comparable, V any] struct {
	entries *lru.Cache[string, V]
	flight  singleflight.Group
	keyFn   func(K) string
}

// NewLoaderCache builds a cache holding at most maxEntries values, evicting
// least recently used entries beyond that.
func NewLoaderCache[K comparable, V any](maxEntries int, keyFn func(K) string) (*LoaderCache[K, V], error) {
	entries, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, err
	}

	return &LoaderCache[K, V]{
		entries: entries,
		keyFn:   keyFn,
	}, nil
}

// Get returns the cached value for key, calling load on a miss. A failed load
// is not cached; the next Get retries.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, error) {
	k := c.keyFn(key)
	if v, ok := c.entries.Get(k); ok {
		return v, nil
	}

	val, err, _ := c.flight.Do(k, func() (any, error) {
		loaded, loadErr := load(ctx, key)
		if loadErr != nil {
			var zero V

			return zero, loadErr
		}

		c.entries.Add(k, loaded)

		return loaded, nil
	})
	if err != nil {
		var zero V

		return zero, err
	}

	return val.(V), nil
}

// Invalidate drops the entry for key if present.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	c.entries.Remove(c.keyFn(key))
}

// InvalidateAll drops every entry.
func (c *LoaderCache[K, V]) InvalidateAll() {
	c.entries.Purge()
}

// Len reports the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.entries.Len()
}
