package cached

import (
	"context"

	"github.com/flexprice/billingcore/internal/cache"
	"github.com/flexprice/billingcore/internal/domain/coupon"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
)

type couponRepository struct {
	coupon.Repository
	cache cache.Cache
}

func NewCouponRepository(repo coupon.Repository, c cache.Cache) coupon.Repository {
	return &couponRepository{Repository: repo, cache: c}
}

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if err := r.Repository.Create(ctx, c); err != nil {
		return err
	}
	r.cache.Delete(ctx, r.key(ctx, c.ID))
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	return readThrough(ctx, r.cache, "coupon", r.key(ctx, id), func() (*coupon.Coupon, error) {
		return r.Repository.Get(ctx, id)
	})
}

// GetMany only reaches the store for the coupons the cache misses
func (r *couponRepository) GetMany(ctx context.Context, ids []string) ([]*coupon.Coupon, error) {
	found := make(map[string]*coupon.Coupon, len(ids))
	for _, id := range ids {
		if c := lookup[coupon.Coupon](ctx, r.cache, "coupon", r.key(ctx, id)); c != nil {
			found[id] = c
		}
	}

	missing := lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		_, ok := found[id]
		return !ok
	}))
	if len(missing) > 0 {
		fetched, err := r.Repository.GetMany(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, c := range fetched {
			store(ctx, r.cache, "coupon", r.key(ctx, c.ID), c)
			found[c.ID] = c
		}
	}

	return lo.Map(ids, func(id string, _ int) *coupon.Coupon {
		return found[id]
	}), nil
}

func (r *couponRepository) key(ctx context.Context, id string) string {
	return cache.CatalogKey(cache.PrefixCoupon, types.GetTenantID(ctx), id)
}
