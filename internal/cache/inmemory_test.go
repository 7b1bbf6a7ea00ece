package cache

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, enabled bool) *InMemoryCache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled
	cfg.Cache.TTL = time.Minute
	return NewInMemoryCache(cfg, logger.NewNoopLogger())
}

func TestCatalogKey(t *testing.T) {
	assert.Equal(t, "plan:v1:tenant_1:plan_1", CatalogKey(PrefixPlan, "tenant_1", "plan_1"))
	assert.Equal(t, "coupon:v1:tenant_1:", TenantPrefix(PrefixCoupon, "tenant_1"))
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, true)
	assert.Equal(t, time.Minute, c.TTL())

	c.Set(ctx, CatalogKey(PrefixPlan, "t1", "plan_1"), "monthly", 0)
	c.Set(ctx, CatalogKey(PrefixPlan, "t1", "plan_2"), "yearly", 0)
	c.Set(ctx, CatalogKey(PrefixCoupon, "t1", "coupon_1"), "ten", 0)

	v, ok := c.Get(ctx, CatalogKey(PrefixPlan, "t1", "plan_1"))
	require.True(t, ok)
	assert.Equal(t, "monthly", v)

	c.Delete(ctx, CatalogKey(PrefixPlan, "t1", "plan_1"))
	_, ok = c.Get(ctx, CatalogKey(PrefixPlan, "t1", "plan_1"))
	assert.False(t, ok)

	c.DeleteByPrefix(ctx, PrefixPlan)
	_, ok = c.Get(ctx, CatalogKey(PrefixPlan, "t1", "plan_2"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, CatalogKey(PrefixCoupon, "t1", "coupon_1"))
	assert.True(t, ok)

	c.Flush(ctx)
	_, ok = c.Get(ctx, CatalogKey(PrefixCoupon, "t1", "coupon_1"))
	assert.False(t, ok)
}

func TestInMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, true)

	c.Set(ctx, "short", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, false)

	c.Set(ctx, "key", "value", 0)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
}
