package cached

import (
	"context"

	"github.com/flexprice/billingcore/internal/cache"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/types"
)

// planRepository serves plan and item reads from the cache. The catalog is
// written rarely so entries live for the cache TTL.
type planRepository struct {
	plan.Repository
	cache cache.Cache
}

func NewPlanRepository(repo plan.Repository, c cache.Cache) plan.Repository {
	return &planRepository{Repository: repo, cache: c}
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	key := cache.CatalogKey(cache.PrefixPlan, types.GetTenantID(ctx), id)
	return readThrough(ctx, r.cache, "plan", key, func() (*plan.Plan, error) {
		return r.Repository.Get(ctx, id)
	})
}

func (r *planRepository) GetItem(ctx context.Context, id string) (*plan.Item, error) {
	key := cache.CatalogKey(cache.PrefixItem, types.GetTenantID(ctx), id)
	return readThrough(ctx, r.cache, "item", key, func() (*plan.Item, error) {
		return r.Repository.GetItem(ctx, id)
	})
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	if err := r.Repository.Create(ctx, p); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.CatalogKey(cache.PrefixPlan, types.GetTenantID(ctx), p.ID))
	return nil
}

func (r *planRepository) CreateItem(ctx context.Context, item *plan.Item) error {
	if err := r.Repository.CreateItem(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.CatalogKey(cache.PrefixItem, types.GetTenantID(ctx), item.ID))
	return nil
}
