package plan

import (
	ierr "github.com/flexprice/billingcore/internal/errors"
)

// Catalog is an in-memory snapshot of the plans and items one computation
// needs, so that pure code never reaches for a repository.
type Catalog struct {
	plans map[string]*Plan
	items map[string]*Item
}

func NewCatalog(plans []*Plan, items []*Item) *Catalog {
	c := &Catalog{
		plans: make(map[string]*Plan, len(plans)),
		items: make(map[string]*Item, len(items)),
	}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	for _, i := range items {
		c.items[i.ID] = i
	}
	return c
}

func (c *Catalog) AddPlan(p *Plan) {
	c.plans[p.ID] = p
}

func (c *Catalog) AddItem(i *Item) {
	c.items[i.ID] = i
}

func (c *Catalog) Plan(id string) (*Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return nil, ierr.NewErrorf("plan %s not found", id).
			WithHint("The referenced plan does not exist").
			WithReportableDetails(map[string]any{"plan_id": id}).
			Mark(ierr.ErrInvalidPlanID)
	}
	return p, nil
}

func (c *Catalog) Item(id string) (*Item, error) {
	i, ok := c.items[id]
	if !ok {
		return nil, ierr.NewErrorf("item %s not found", id).
			WithHint("The referenced item does not exist").
			WithReportableDetails(map[string]any{"item_id": id}).
			Mark(ierr.ErrInvalidItemID)
	}
	return i, nil
}
