package testutil

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

// subscriptionFilterFn implements filtering logic for subscriptions
func subscriptionFilterFn(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
	if sub == nil {
		return false
	}

	if !CheckTenantFilter(ctx, sub.TenantID) {
		return false
	}

	f, ok := filter.(*subscription.Filter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && sub.CustomerID != f.CustomerID {
		return false
	}

	if f.RenewsBefore != nil && (sub.RenewsNext.IsZero() || sub.RenewsNext.After(*f.RenewsBefore)) {
		return false
	}

	return true
}

// subscriptionSortFn orders subscriptions by their next renewal
func subscriptionSortFn(i, j *subscription.Subscription) bool {
	if i == nil || j == nil {
		return false
	}
	if i.RenewsNext.Equal(j.RenewsNext) {
		return i.ID < j.ID
	}
	return i.RenewsNext.Before(j.RenewsNext)
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, sub.ID, sub.Copy()); err != nil {
		return ierr.WithError(err).
			WithHintf("Subscription %s already exists", sub.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return sub.Copy(), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, sub.ID, sub.Copy()); err != nil {
		return ierr.WithError(err).
			WithHint("Subscription not found").
			WithReportableDetails(map[string]interface{}{
				"id": sub.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, filter, subscriptionFilterFn, subscriptionSortFn)
	if err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, 0, len(subs))
	for _, sub := range subs {
		if filter != nil && filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
		result = append(result, sub.Copy())
	}
	return result, nil
}
