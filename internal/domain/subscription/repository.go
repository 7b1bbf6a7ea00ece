package subscription

import (
	"context"
	"time"
)

// Filter narrows down subscription listings
type Filter struct {
	// RenewsBefore selects subscriptions whose RenewsNext is at or before the time
	RenewsBefore *time.Time
	CustomerID   string
	Limit        int
}

type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// Update persists the period and contract cursors, quantity, amount and addons
	Update(ctx context.Context, subscription *Subscription) error
	List(ctx context.Context, filter *Filter) ([]*Subscription, error)
}
