package cached

import (
	"context"

	"github.com/flexprice/billingcore/internal/cache"
)

// lookup returns a copy of the cached record so callers can't mutate the
// shared entry
func lookup[T any](ctx context.Context, c cache.Cache, entity, key string) *T {
	span := cache.StartCacheSpan(ctx, entity, "get", key)
	value, found := c.Get(ctx, key)
	cache.FinishSpan(span, found)
	if !found {
		return nil
	}

	cp := *value.(*T)
	return &cp
}

func store[T any](ctx context.Context, c cache.Cache, entity, key string, v *T) {
	span := cache.StartCacheSpan(ctx, entity, "set", key)
	defer cache.FinishSpan(span, true)

	cp := *v
	c.Set(ctx, key, &cp, cache.ExpiryDefaultInMemory)
}

// readThrough serves key from the cache and falls back to load, caching
// whatever load returns. Errors are never cached.
func readThrough[T any](ctx context.Context, c cache.Cache, entity, key string, load func() (*T, error)) (*T, error) {
	if v := lookup[T](ctx, c, entity, key); v != nil {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	store(ctx, c, entity, key, v)
	return v, nil
}
