package subscription

import (
	"time"

	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// CustomerID is the identifier for the customer in our system
	CustomerID string `db:"customer_id" json:"customer_id"`

	// PlanID is the identifier for the plan in our system
	PlanID string `db:"plan_id" json:"plan_id"`

	Quantity decimal.Decimal `db:"quantity" json:"quantity"`

	// Amount overrides the plan price, set only for custom pricing.
	// nil means no amount was given which is not the same as zero.
	Amount *decimal.Decimal `db:"amount" json:"amount,omitempty"`

	// Cycles is the contract length in billing periods, 0 for evergreen
	Cycles int `db:"cycles" json:"cycles"`

	// SnapToNthDay aligns periods to a day of the week, month or year.
	// 0 bills on the anniversary of the start date.
	SnapToNthDay int `db:"snap_to_nth_day" json:"snap_to_nth_day"`

	BillIn          types.BillIn          `db:"bill_in" json:"bill_in"`
	ContractRenewal types.ContractRenewal `db:"contract_renewal" json:"contract_renewal"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// StartDate is the start date of the subscription
	StartDate time.Time `db:"start_date" json:"start_date"`

	// PeriodStart and PeriodEnd bound the period currently being lived.
	// PeriodEnd is inclusive, one second before the next period starts.
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	// RenewsNext is when the renewal worker should next pick the subscription up
	RenewsNext time.Time `db:"renews_next" json:"renews_next"`

	// TrialEnd is when the trial stops, set only for trialing subscriptions
	TrialEnd *time.Time `db:"trial_end" json:"trial_end,omitempty"`

	// RenewedLast is the last time an invoice was issued at renewal
	RenewedLast *time.Time `db:"renewed_last" json:"renewed_last,omitempty"`

	ContractPeriodStart *time.Time `db:"contract_period_start" json:"contract_period_start,omitempty"`
	ContractPeriodEnd   *time.Time `db:"contract_period_end" json:"contract_period_end,omitempty"`

	CancelAtPeriodEnd bool `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	// Timezone of the tenant owning the subscription, IANA name
	Timezone string `db:"timezone" json:"timezone"`

	CouponIDs []string `json:"coupon_ids,omitempty"`

	// TaxRates are fixed taxes charged on every invoice of the subscription
	TaxRates []TaxRate `json:"tax_rates,omitempty"`

	Addons []*Addon `json:"addons,omitempty"`

	types.BaseModel
}

// TaxRate is a fixed percentage tax attached to a subscription
type TaxRate struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Addon is an extra plan or catalog item billed with the subscription
type Addon struct {
	ID             string           `db:"id" json:"id"`
	SubscriptionID string           `db:"subscription_id" json:"subscription_id"`
	PlanID         string           `db:"plan_id" json:"plan_id,omitempty"`
	ItemID         string           `db:"item_id" json:"item_id,omitempty"`
	Quantity       decimal.Decimal  `db:"quantity" json:"quantity"`
	Amount         *decimal.Decimal `db:"amount" json:"amount,omitempty"`
}

// Key identifies the addon when diffing, item:<id> or plan:<id>
func (a *Addon) Key() string {
	if a.ItemID != "" {
		return "item:" + a.ItemID
	}
	return "plan:" + a.PlanID
}

// IsItem reports whether the addon references a catalog item
func (a *Addon) IsItem() bool {
	return a.ItemID != ""
}

func (a *Addon) Copy() *Addon {
	c := *a
	if a.Amount != nil {
		c.Amount = lo.ToPtr(*a.Amount)
	}
	return &c
}

// Location returns the tenant timezone of the subscription, UTC when unset or unknown
func (s *Subscription) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsCalendarBilled reports whether periods snap to an Nth day
func (s *Subscription) IsCalendarBilled() bool {
	return s.SnapToNthDay > 0
}

func (s *Subscription) IsTrialing() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusTrialing
}

// HasPeriod reports whether the period cursors were ever set
func (s *Subscription) HasPeriod() bool {
	return !s.PeriodStart.IsZero() && !s.PeriodEnd.IsZero()
}

// Copy returns a deep copy. Proration compares two copies of a subscription
// and neither side may alias the other.
func (s *Subscription) Copy() *Subscription {
	c := *s
	if s.Amount != nil {
		c.Amount = lo.ToPtr(*s.Amount)
	}
	if s.TrialEnd != nil {
		c.TrialEnd = lo.ToPtr(*s.TrialEnd)
	}
	if s.RenewedLast != nil {
		c.RenewedLast = lo.ToPtr(*s.RenewedLast)
	}
	if s.ContractPeriodStart != nil {
		c.ContractPeriodStart = lo.ToPtr(*s.ContractPeriodStart)
	}
	if s.ContractPeriodEnd != nil {
		c.ContractPeriodEnd = lo.ToPtr(*s.ContractPeriodEnd)
	}
	c.CouponIDs = append([]string(nil), s.CouponIDs...)
	c.TaxRates = append([]TaxRate(nil), s.TaxRates...)
	c.Addons = lo.Map(s.Addons, func(a *Addon, _ int) *Addon {
		return a.Copy()
	})
	return &c
}
