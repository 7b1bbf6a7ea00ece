package proration

import (
	"time"

	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// Snapshot is a subscription as it is, or would be, together with its plan
type Snapshot struct {
	Subscription *subscription.Subscription
	Plan         *plan.Plan
}

// Line is a prorated credit (negative quantity) or charge (positive quantity)
// for the rest of the current period
type Line struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	Prorated       bool            `json:"prorated"`
	SubscriptionID string          `json:"subscription_id"`

	// SourceKey is the plan:<id> or item:<id> the line prorates
	SourceKey string `json:"source_key"`
}

// Total is quantity times unit cost, unrounded
func (l Line) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// IsCredit reports whether the line gives money back
func (l Line) IsCredit() bool {
	return l.Total().IsNegative()
}

type AddonChangeKind string

const (
	AddonAdded    AddonChangeKind = "added"
	AddonRemoved  AddonChangeKind = "removed"
	AddonModified AddonChangeKind = "modified"
)

// AddonChange describes one addon difference between two snapshots. Its
// addon is a private copy, never one of the compared subscriptions' addons.
type AddonChange struct {
	kind          AddonChangeKind
	addon         subscription.Addon
	quantityDelta *decimal.Decimal
	amountDelta   *decimal.Decimal
}

func Added(addon subscription.Addon) AddonChange {
	return AddonChange{kind: AddonAdded, addon: copyAddon(addon)}
}

func Removed(addon subscription.Addon) AddonChange {
	return AddonChange{kind: AddonRemoved, addon: copyAddon(addon)}
}

// Modified is an addon kept across snapshots whose quantity or amount moved.
// addon holds the after state.
func Modified(addon subscription.Addon, quantityDelta, amountDelta *decimal.Decimal) AddonChange {
	c := AddonChange{kind: AddonModified, addon: copyAddon(addon)}
	if quantityDelta != nil {
		qd := *quantityDelta
		c.quantityDelta = &qd
	}
	if amountDelta != nil {
		ad := *amountDelta
		c.amountDelta = &ad
	}
	return c
}

func copyAddon(a subscription.Addon) subscription.Addon {
	return *a.Copy()
}

func (c AddonChange) Kind() AddonChangeKind {
	return c.kind
}

// Addon returns a copy of the changed addon
func (c AddonChange) Addon() subscription.Addon {
	return copyAddon(c.addon)
}

func (c AddonChange) Key() string {
	return c.addon.Key()
}

func (c AddonChange) QuantityDelta() (decimal.Decimal, bool) {
	if c.quantityDelta == nil {
		return decimal.Zero, false
	}
	return *c.quantityDelta, true
}

func (c AddonChange) AmountDelta() (decimal.Decimal, bool) {
	if c.amountDelta == nil {
		return decimal.Zero, false
	}
	return *c.amountDelta, true
}

// before rebuilds the addon as it was before a modification
func (c AddonChange) before() subscription.Addon {
	a := copyAddon(c.addon)
	if qd, ok := c.QuantityDelta(); ok {
		a.Quantity = a.Quantity.Sub(qd)
	}
	if ad, ok := c.AmountDelta(); ok {
		prev := amountOrZero(a.Amount).Sub(ad)
		a.Amount = &prev
	}
	return a
}

// Diff classifies what changed between two snapshots
type Diff struct {
	ChangedCycle    bool
	ChangedPlan     bool
	ChangedQuantity bool
	ChangedAmount   bool
	ChangedAddons   bool

	Added    []AddonChange
	Removed  []AddonChange
	Modified []AddonChange
}

// HasProrationChange reports whether anything billable changed
func (d Diff) HasProrationChange() bool {
	return d.ChangedCycle || d.ChangedPlan || d.ChangedQuantity || d.ChangedAmount || d.ChangedAddons
}
