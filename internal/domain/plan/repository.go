package plan

import (
	"context"
)

// Repository reads the plan and item catalog
type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, plan *Plan) error
	CreateItem(ctx context.Context, item *Item) error
}
