package service

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
)

// loadCatalog fetches every plan and item the subscriptions reference.
// Unknown references fail with ErrInvalidPlanID or ErrInvalidItemID.
func loadCatalog(ctx context.Context, repo plan.Repository, subs ...*subscription.Subscription) (*plan.Catalog, error) {
	catalog := plan.NewCatalog(nil, nil)
	seenPlans := make(map[string]bool)
	seenItems := make(map[string]bool)

	addPlan := func(id string) error {
		if seenPlans[id] {
			return nil
		}
		seenPlans[id] = true

		p, err := repo.Get(ctx, id)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.WithError(err).
					WithHintf("Plan %s does not exist", id).
					WithReportableDetails(map[string]any{"plan_id": id}).
					Mark(ierr.ErrInvalidPlanID)
			}
			return err
		}
		catalog.AddPlan(p)
		return nil
	}

	addItem := func(id string) error {
		if seenItems[id] {
			return nil
		}
		seenItems[id] = true

		item, err := repo.GetItem(ctx, id)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.WithError(err).
					WithHintf("Item %s does not exist", id).
					WithReportableDetails(map[string]any{"item_id": id}).
					Mark(ierr.ErrInvalidItemID)
			}
			return err
		}
		catalog.AddItem(item)
		return nil
	}

	for _, sub := range subs {
		if err := addPlan(sub.PlanID); err != nil {
			return nil, err
		}
		for _, addon := range sub.Addons {
			var err error
			if addon.IsItem() {
				err = addItem(addon.ItemID)
			} else {
				err = addPlan(addon.PlanID)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	return catalog, nil
}

// addonPlan resolves the plan pricing an addon. Items bill on the interval
// of the subscription's plan.
func addonPlan(catalog *plan.Catalog, addon *subscription.Addon, base *plan.Plan) (*plan.Plan, error) {
	if addon.IsItem() {
		item, err := catalog.Item(addon.ItemID)
		if err != nil {
			return nil, err
		}
		return item.AsPlan(base.Interval), nil
	}
	return catalog.Plan(addon.PlanID)
}
