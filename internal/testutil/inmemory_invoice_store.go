package testutil

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/invoice"
	ierr "github.com/flexprice/billingcore/internal/errors"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, inv); err != nil {
		return ierr.WithError(err).
			WithHintf("Invoice %s already exists", inv.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

// ListBySubscription returns the stored invoices of a subscription ordered by period start
func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) []*invoice.Invoice {
	invoices, _ := s.InMemoryStore.List(ctx, subscriptionID,
		func(_ context.Context, inv *invoice.Invoice, filter interface{}) bool {
			return inv.SubscriptionID == filter.(string)
		},
		func(i, j *invoice.Invoice) bool {
			if i.PeriodStart == nil || j.PeriodStart == nil {
				return i.ID < j.ID
			}
			return i.PeriodStart.Before(*j.PeriodStart)
		})
	return invoices
}
