package testutil

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/coupon"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCouponStore implements coupon.Repository
type InMemoryCouponStore struct {
	*InMemoryStore[*coupon.Coupon]
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		InMemoryStore: NewInMemoryStore[*coupon.Coupon](),
	}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	if c == nil {
		return ierr.NewError("coupon cannot be nil").
			Mark(ierr.ErrValidation)
	}
	cp := *c
	return s.InMemoryStore.Create(ctx, c.ID, &cp)
}

func (s *InMemoryCouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, c.TenantID) {
		return nil, ierr.NewError("coupon not found").
			WithHint("Coupon not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// GetMany returns the coupons in the order of ids, repeats included, and
// fails on the first unknown id
func (s *InMemoryCouponStore) GetMany(ctx context.Context, ids []string) ([]*coupon.Coupon, error) {
	byID := make(map[string]*coupon.Coupon, len(ids))
	for _, id := range lo.Uniq(ids) {
		c, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		byID[id] = c
	}
	return lo.Map(ids, func(id string, _ int) *coupon.Coupon {
		return byID[id]
	}), nil
}
