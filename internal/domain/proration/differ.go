package proration

import (
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Differ compares two snapshots of the same subscription
func Differ(before, after Snapshot) Diff {
	b, a := before.Subscription, after.Subscription

	d := Diff{
		ChangedCycle:    before.Plan.Interval.Duration() != after.Plan.Interval.Duration(),
		ChangedPlan:     b.PlanID != a.PlanID,
		ChangedQuantity: !b.Quantity.Equal(a.Quantity),
	}

	if before.Plan.PricingMode == types.PricingModeCustom || after.Plan.PricingMode == types.PricingModeCustom {
		d.ChangedAmount = amountsDiffer(b.Amount, a.Amount)
	}

	d.Added, d.Removed, d.Modified = diffAddons(b.Addons, a.Addons)
	d.ChangedAddons = len(d.Added)+len(d.Removed)+len(d.Modified) > 0

	return d
}

func amountsDiffer(before, after *decimal.Decimal) bool {
	if before == nil || after == nil {
		return before != after
	}
	return !before.Equal(*after)
}

// aggregateAddons folds addons sharing a key into one, summing quantities
// and amounts. Keys keep their first appearance order.
func aggregateAddons(addons []*subscription.Addon) ([]string, map[string]subscription.Addon) {
	keys := make([]string, 0, len(addons))
	byKey := make(map[string]subscription.Addon, len(addons))

	for _, addon := range addons {
		key := addon.Key()
		agg, ok := byKey[key]
		if !ok {
			keys = append(keys, key)
			byKey[key] = *addon.Copy()
			continue
		}

		agg.Quantity = agg.Quantity.Add(addon.Quantity)
		if addon.Amount != nil {
			sum := *addon.Amount
			if agg.Amount != nil {
				sum = sum.Add(*agg.Amount)
			}
			agg.Amount = &sum
		}
		byKey[key] = agg
	}

	return keys, byKey
}

func diffAddons(before, after []*subscription.Addon) (added, removed, modified []AddonChange) {
	beforeKeys, beforeByKey := aggregateAddons(before)
	afterKeys, afterByKey := aggregateAddons(after)

	added = make([]AddonChange, 0)
	removed = make([]AddonChange, 0)
	modified = make([]AddonChange, 0)

	for _, key := range beforeKeys {
		old := beforeByKey[key]
		cur, ok := afterByKey[key]
		if !ok {
			removed = append(removed, Removed(old))
			continue
		}

		quantityChanged := !old.Quantity.Equal(cur.Quantity)
		amountChanged := amountsDiffer(old.Amount, cur.Amount)

		switch {
		case quantityChanged && amountChanged:
			removed = append(removed, Removed(old))
			added = append(added, Added(cur))
		case quantityChanged:
			modified = append(modified, Modified(cur, lo.ToPtr(cur.Quantity.Sub(old.Quantity)), nil))
		case amountChanged:
			modified = append(modified, Modified(cur, nil, lo.ToPtr(amountOrZero(cur.Amount).Sub(amountOrZero(old.Amount)))))
		}
	}

	for _, key := range afterKeys {
		if _, ok := beforeByKey[key]; !ok {
			added = append(added, Added(afterByKey[key]))
		}
	}

	return added, removed, modified
}

func amountOrZero(amount *decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return *amount
}
