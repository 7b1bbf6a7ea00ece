package invoice

import (
	"context"
)

type Repository interface {
	// Create persists the invoice with its line items
	Create(ctx context.Context, invoice *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
}
