package lineitem

import (
	"context"
)

// Filter selects pending line items not yet consumed by an invoice
type Filter struct {
	SubscriptionID string
	CustomerID     string
}

type Repository interface {
	CreateMany(ctx context.Context, items []*PendingLineItem) error
	ListPending(ctx context.Context, filter *Filter) ([]*PendingLineItem, error)
	MarkInvoiced(ctx context.Context, ids []string, invoiceID string) error
	// HasPendingProration reports whether an un-invoiced prorated line exists
	// for the subscription and source key
	HasPendingProration(ctx context.Context, subscriptionID, sourceKey string) (bool, error)
}
