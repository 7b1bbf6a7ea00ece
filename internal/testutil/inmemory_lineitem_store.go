package testutil

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/lineitem"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/samber/lo"
)

// InMemoryLineItemStore implements lineitem.Repository
type InMemoryLineItemStore struct {
	*InMemoryStore[*lineitem.PendingLineItem]
}

func NewInMemoryLineItemStore() *InMemoryLineItemStore {
	return &InMemoryLineItemStore{
		InMemoryStore: NewInMemoryStore[*lineitem.PendingLineItem](),
	}
}

func copyPendingLineItem(item *lineitem.PendingLineItem) *lineitem.PendingLineItem {
	cp := *item
	if item.PeriodStart != nil {
		cp.PeriodStart = lo.ToPtr(*item.PeriodStart)
	}
	if item.PeriodEnd != nil {
		cp.PeriodEnd = lo.ToPtr(*item.PeriodEnd)
	}
	if item.InvoiceID != nil {
		cp.InvoiceID = lo.ToPtr(*item.InvoiceID)
	}
	return &cp
}

// pendingFilterFn keeps the un-invoiced items matching the filter
func pendingFilterFn(ctx context.Context, item *lineitem.PendingLineItem, filter interface{}) bool {
	if item == nil || item.IsInvoiced() {
		return false
	}

	if !CheckTenantFilter(ctx, item.TenantID) {
		return false
	}

	f, ok := filter.(*lineitem.Filter)
	if !ok || f == nil {
		return true
	}

	if f.SubscriptionID != "" && item.SubscriptionID != f.SubscriptionID {
		return false
	}
	if f.CustomerID != "" && item.CustomerID != f.CustomerID {
		return false
	}
	return true
}

func pendingSortFn(i, j *lineitem.PendingLineItem) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryLineItemStore) CreateMany(ctx context.Context, items []*lineitem.PendingLineItem) error {
	for _, item := range items {
		if err := s.InMemoryStore.Create(ctx, item.ID, copyPendingLineItem(item)); err != nil {
			return ierr.WithError(err).
				WithHintf("Pending line item %s already exists", item.ID).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return nil
}

func (s *InMemoryLineItemStore) ListPending(ctx context.Context, filter *lineitem.Filter) ([]*lineitem.PendingLineItem, error) {
	items, err := s.InMemoryStore.List(ctx, filter, pendingFilterFn, pendingSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(item *lineitem.PendingLineItem, _ int) *lineitem.PendingLineItem {
		return copyPendingLineItem(item)
	}), nil
}

func (s *InMemoryLineItemStore) MarkInvoiced(ctx context.Context, ids []string, invoiceID string) error {
	for _, id := range ids {
		item, err := s.InMemoryStore.Get(ctx, id)
		if err != nil {
			return ierr.NewError("pending line item not found").
				WithHint("Pending line item not found").
				WithReportableDetails(map[string]interface{}{
					"id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		updated := copyPendingLineItem(item)
		updated.InvoiceID = lo.ToPtr(invoiceID)
		if err := s.InMemoryStore.Update(ctx, id, updated); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryLineItemStore) HasPendingProration(ctx context.Context, subscriptionID, sourceKey string) (bool, error) {
	items, err := s.ListPending(ctx, &lineitem.Filter{SubscriptionID: subscriptionID})
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(items, func(item *lineitem.PendingLineItem) bool {
		return item.Prorated && item.SourceKey == sourceKey
	}), nil
}

// All returns every stored item, invoiced or not
func (s *InMemoryLineItemStore) All(ctx context.Context) []*lineitem.PendingLineItem {
	items, _ := s.InMemoryStore.List(ctx, nil, nil, pendingSortFn)
	return items
}
