package testutil

import (
	"context"
	"sync/atomic"

	"github.com/flexprice/billingcore/internal/domain/plan"
	ierr "github.com/flexprice/billingcore/internal/errors"
)

// InMemoryPlanStore implements plan.Repository for plans and catalog items
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
	items *InMemoryStore[*plan.Item]

	// reads counts Get and GetItem calls, used by cache tests
	reads atomic.Int64
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
		items:         NewInMemoryStore[*plan.Item](),
	}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	cp := *p
	return s.InMemoryStore.Create(ctx, p.ID, &cp)
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	s.reads.Add(1)
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryPlanStore) CreateItem(ctx context.Context, item *plan.Item) error {
	if item == nil {
		return ierr.NewError("item cannot be nil").
			Mark(ierr.ErrValidation)
	}
	cp := *item
	return s.items.Create(ctx, item.ID, &cp)
}

func (s *InMemoryPlanStore) GetItem(ctx context.Context, id string) (*plan.Item, error) {
	s.reads.Add(1)
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("item not found").
			WithHint("Item not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

// Reads returns how many lookups reached the store
func (s *InMemoryPlanStore) Reads() int {
	return int(s.reads.Load())
}

func (s *InMemoryPlanStore) Clear() {
	s.InMemoryStore.Clear()
	s.items.Clear()
	s.reads.Store(0)
}
