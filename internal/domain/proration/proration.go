package proration

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/period"
	"github.com/flexprice/billingcore/internal/pricing"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Proration holds the credits and charges owed for changing a subscription
// from before to after in the middle of its current period
type Proration struct {
	before  Snapshot
	after   Snapshot
	date    time.Time
	catalog *plan.Catalog
	engine  *pricing.Engine

	diff    Diff
	percent decimal.Decimal
	lines   []Line
}

// New computes the proration of the change at date. Remaining time is
// measured against the before subscription's period. catalog resolves
// addon plans and items.
func New(before, after Snapshot, date time.Time, catalog *plan.Catalog) (*Proration, error) {
	if before.Subscription == nil || before.Plan == nil || after.Subscription == nil || after.Plan == nil {
		return nil, ierr.NewError("proration needs both snapshots with their plans").
			WithHint("Subscription and plan are required on both sides of a change").
			Mark(ierr.ErrValidation)
	}
	if catalog == nil {
		catalog = plan.NewCatalog(nil, nil)
	}

	p := &Proration{
		before:  before,
		after:   after,
		date:    date,
		catalog: catalog,
		engine:  pricing.NewEngine(),
		diff:    Differ(before, after),
		percent: decimal.Zero,
		lines:   make([]Line, 0),
	}

	if !p.diff.HasProrationChange() {
		return p, nil
	}

	periods, err := period.NewBillingPeriods(before.Subscription, before.Plan)
	if err != nil {
		return nil, err
	}
	p.percent = periods.PercentTimeRemaining(date)

	if err := p.compute(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Proration) Diff() Diff {
	return p.diff
}

// Percent is the share of the period remaining at the proration date
func (p *Proration) Percent() decimal.Decimal {
	return p.percent
}

// Lines returns a copy of the computed lines
func (p *Proration) Lines() []Line {
	return append([]Line(nil), p.lines...)
}

// Total sums all lines exactly, rounded to the currency precision of the plan
func (p *Proration) Total() decimal.Decimal {
	return types.SumAmounts(p.after.Plan.Currency, p.lineTotals()...)
}

func (p *Proration) lineTotals() []decimal.Decimal {
	return lo.Map(p.lines, func(l Line, _ int) decimal.Decimal {
		return l.Total()
	})
}

// Apply stores the lines as pending line items. It returns false without
// storing anything when the after subscription is trialing or over, or
// when the proration nets to zero.
func (p *Proration) Apply(ctx context.Context, repo lineitem.Repository) (bool, error) {
	switch p.after.Subscription.SubscriptionStatus {
	case types.SubscriptionStatusTrialing, types.SubscriptionStatusFinished, types.SubscriptionStatusCanceled:
		return false, nil
	}

	// unrounded, a net below the currency precision is still applied
	if len(p.lines) == 0 || decimal.Sum(decimal.Zero, p.lineTotals()...).IsZero() {
		return false, nil
	}

	if err := repo.CreateMany(ctx, p.PendingLineItems(ctx)); err != nil {
		return false, err
	}
	return true, nil
}

// PendingLineItems converts the lines to pending line items ready to be stored
func (p *Proration) PendingLineItems(ctx context.Context) []*lineitem.PendingLineItem {
	sub := p.after.Subscription
	return lo.Map(p.lines, func(l Line, _ int) *lineitem.PendingLineItem {
		return &lineitem.PendingLineItem{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_LINE_ITEM),
			SubscriptionID: sub.ID,
			CustomerID:     sub.CustomerID,
			Name:           l.Name,
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitCost:       l.UnitCost,
			Currency:       p.after.Plan.Currency,
			PeriodStart:    lo.ToPtr(l.PeriodStart),
			PeriodEnd:      lo.ToPtr(l.PeriodEnd),
			Prorated:       true,
			SourceKey:      l.SourceKey,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}
	})
}

func (p *Proration) compute() error {
	b, a := p.before.Subscription, p.after.Subscription
	beforeKey, afterKey := "plan:"+b.PlanID, "plan:"+a.PlanID

	if p.diff.ChangedCycle {
		// the new cycle is billed in full by the next invoice
		if err := p.full(p.before.Plan, beforeKey, b.Quantity, b.Amount, -1); err != nil {
			return err
		}
		for _, addon := range b.Addons {
			if err := p.fullAddon(*addon, -1); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case p.diff.ChangedPlan || (p.diff.ChangedQuantity && p.diff.ChangedAmount):
		if err := p.swap(p.before.Plan, beforeKey, b.Quantity, b.Amount, p.after.Plan, afterKey, a.Quantity, a.Amount); err != nil {
			return err
		}
	case p.diff.ChangedQuantity:
		if p.after.Plan.PricingMode.IsTierBased() {
			if err := p.swap(p.before.Plan, beforeKey, b.Quantity, b.Amount, p.after.Plan, afterKey, a.Quantity, a.Amount); err != nil {
				return err
			}
			break
		}
		if err := p.quantityDelta(p.after.Plan, afterKey, a.Quantity.Sub(b.Quantity), a.Amount); err != nil {
			return err
		}
	case p.diff.ChangedAmount:
		p.amountDelta(p.after.Plan, afterKey, a.Quantity, amountOrZero(a.Amount).Sub(amountOrZero(b.Amount)))
	}

	for _, change := range p.diff.Removed {
		if err := p.fullAddon(change.Addon(), -1); err != nil {
			return err
		}
	}
	for _, change := range p.diff.Added {
		if err := p.fullAddon(change.Addon(), 1); err != nil {
			return err
		}
	}
	for _, change := range p.diff.Modified {
		if err := p.modifiedAddon(change); err != nil {
			return err
		}
	}

	return nil
}

// swap credits the old priced lines and charges the new ones
func (p *Proration) swap(
	oldPlan *plan.Plan, oldKey string, oldQty decimal.Decimal, oldAmount *decimal.Decimal,
	newPlan *plan.Plan, newKey string, newQty decimal.Decimal, newAmount *decimal.Decimal,
) error {
	if err := p.full(oldPlan, oldKey, oldQty, oldAmount, -1); err != nil {
		return err
	}
	return p.full(newPlan, newKey, newQty, newAmount, 1)
}

// full prorates every priced line of the plan at quantity. sign is -1 for a
// credit and 1 for a charge.
func (p *Proration) full(pl *plan.Plan, key string, quantity decimal.Decimal, amount *decimal.Decimal, sign int64) error {
	items, err := p.engine.Price(pl, quantity, amount)
	if err != nil {
		return err
	}

	label := "added"
	if sign < 0 {
		label = "removed"
	}

	for _, item := range items {
		p.add(Line{
			Name:        item.Name,
			Description: fmt.Sprintf("(%s %s) %s", label, item.Quantity, describe(item)),
			Quantity:    item.Quantity.Mul(decimal.NewFromInt(sign)),
			UnitCost:    item.UnitCost,
			SourceKey:   key,
		})
	}
	return nil
}

// quantityDelta prorates a quantity change priced at one unit of the plan
func (p *Proration) quantityDelta(pl *plan.Plan, key string, delta decimal.Decimal, amount *decimal.Decimal) error {
	items, err := p.engine.Price(pl, decimal.NewFromInt(1), amount)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	label := "added"
	if delta.IsNegative() {
		label = "removed"
	}

	p.add(Line{
		Name:        items[0].Name,
		Description: fmt.Sprintf("(%s %s) %s", label, delta.Abs(), describe(items[0])),
		Quantity:    delta,
		UnitCost:    items[0].UnitCost,
		SourceKey:   key,
	})
	return nil
}

// amountDelta prorates a custom price change over the whole quantity
func (p *Proration) amountDelta(pl *plan.Plan, key string, quantity, delta decimal.Decimal) {
	label := "increased price"
	if delta.IsNegative() {
		label = "decreased price"
	}

	p.add(Line{
		Name:        pl.Name,
		Description: fmt.Sprintf("(%s) %s", label, pl.Name),
		Quantity:    quantity,
		UnitCost:    delta,
		SourceKey:   key,
	})
}

func (p *Proration) addonPlan(addon subscription.Addon) (*plan.Plan, error) {
	if addon.IsItem() {
		item, err := p.catalog.Item(addon.ItemID)
		if err != nil {
			return nil, err
		}
		return item.AsPlan(p.before.Plan.Interval), nil
	}
	return p.catalog.Plan(addon.PlanID)
}

func (p *Proration) fullAddon(addon subscription.Addon, sign int64) error {
	pl, err := p.addonPlan(addon)
	if err != nil {
		return err
	}
	return p.full(pl, addon.Key(), addon.Quantity, addon.Amount, sign)
}

func (p *Proration) modifiedAddon(change AddonChange) error {
	addon := change.Addon()
	pl, err := p.addonPlan(addon)
	if err != nil {
		return err
	}

	qd, hasQuantity := change.QuantityDelta()
	ad, hasAmount := change.AmountDelta()

	if (hasQuantity && hasAmount) || (hasQuantity && pl.PricingMode.IsTierBased()) {
		old := change.before()
		if err := p.full(pl, addon.Key(), old.Quantity, old.Amount, -1); err != nil {
			return err
		}
		return p.full(pl, addon.Key(), addon.Quantity, addon.Amount, 1)
	}

	if hasQuantity {
		return p.quantityDelta(pl, addon.Key(), qd, addon.Amount)
	}
	if hasAmount {
		p.amountDelta(pl, addon.Key(), addon.Quantity, ad)
	}
	return nil
}

// add scales the line by the remaining share of the period and keeps it when
// it is worth anything
func (p *Proration) add(l Line) {
	l.Quantity = types.RoundQuantity(l.Quantity.Mul(p.percent))
	if l.Quantity.IsZero() || l.UnitCost.IsZero() {
		return
	}

	l.PeriodStart = p.date
	l.PeriodEnd = p.before.Subscription.PeriodEnd
	l.Prorated = true
	l.SubscriptionID = p.after.Subscription.ID
	p.lines = append(p.lines, l)
}

func describe(item pricing.LineItem) string {
	if item.Description == "" {
		return item.Name
	}
	return fmt.Sprintf("%s %s", item.Name, item.Description)
}
