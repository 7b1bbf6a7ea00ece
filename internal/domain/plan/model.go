package plan

import (
	"database/sql/driver"
	"fmt"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tier is one row of a tier table. UpTo is the inclusive upper bound of the
// tier in units, nil for the last unbounded tier.
type Tier struct {
	UpTo     *decimal.Decimal `json:"up_to"`
	UnitCost decimal.Decimal  `json:"unit_cost"`
	FlatFee  decimal.Decimal  `json:"flat_fee"`
}

// JSONBTiers is a tier table persisted as jsonb
type JSONBTiers []Tier

// Plan is a recurring price: a pricing mode, a billing interval and a currency
type Plan struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`

	// PricingMode decides how a quantity becomes line items
	PricingMode types.PricingMode `db:"pricing_mode" json:"pricing_mode"`

	// UnitCost is the price of one unit for per_unit plans
	// stored in main currency units (e.g. dollars, not cents)
	UnitCost decimal.Decimal `db:"unit_cost" json:"unit_cost"`

	// Tiers is the tier table for tiered and volume plans
	Tiers JSONBTiers `db:"tiers" json:"tiers"`

	Interval types.Interval `json:"interval"`

	// Currency 3 digit ISO currency code in lowercase ex usd, eur, gbp
	Currency string `db:"currency" json:"currency"`

	types.BaseModel
}

// Validate checks the plan's interval and tier table
func (p *Plan) Validate() error {
	if p.ID == "" {
		return ierr.NewError("plan id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}

	if err := p.Interval.Validate(); err != nil {
		return err
	}

	if p.PricingMode.IsTierBased() {
		return p.Tiers.Validate()
	}

	return nil
}

// Validate checks that bounds strictly increase and only the last tier is unbounded
func (t JSONBTiers) Validate() error {
	if len(t) == 0 {
		return ierr.NewError("tier table is empty").
			WithHint("Tiered and volume plans need at least one tier").
			Mark(ierr.ErrValidation)
	}

	var prev *decimal.Decimal
	for i, tier := range t {
		if tier.UpTo == nil {
			if i != len(t)-1 {
				return ierr.NewErrorf("tier %d is unbounded but is not the last tier", i).
					WithHint("Only the last tier may omit up_to").
					WithReportableDetails(map[string]any{"tier_index": i}).
					Mark(ierr.ErrValidation)
			}
			continue
		}

		if !tier.UpTo.IsPositive() {
			return ierr.NewErrorf("tier %d has a non positive up_to", i).
				WithHint("Tier bounds must be greater than zero").
				WithReportableDetails(map[string]any{"tier_index": i, "up_to": tier.UpTo.String()}).
				Mark(ierr.ErrValidation)
		}

		if prev != nil && !tier.UpTo.GreaterThan(*prev) {
			return ierr.NewErrorf("tier %d up_to %s does not increase", i, tier.UpTo).
				WithHint("Tier bounds must be strictly increasing").
				WithReportableDetails(map[string]any{
					"tier_index": i,
					"up_to":      tier.UpTo.String(),
					"previous":   prev.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		prev = tier.UpTo
	}

	return nil
}

func (t *JSONBTiers) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for jsonb tiers")
	}
	return json.Unmarshal(bytes, t)
}

func (t JSONBTiers) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Item is a catalog item sold as an addon. Items bill on the interval of
// the subscription they are attached to.
type Item struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// PricingMode is per_unit or custom
	PricingMode types.PricingMode `db:"pricing_mode" json:"pricing_mode"`
	UnitCost    decimal.Decimal   `db:"unit_cost" json:"unit_cost"`
	Currency    string            `db:"currency" json:"currency"`

	types.BaseModel
}

// AsPlan returns a plan pricing the item on the given interval
func (i *Item) AsPlan(interval types.Interval) *Plan {
	return &Plan{
		ID:          i.ID,
		Name:        i.Name,
		PricingMode: i.PricingMode,
		UnitCost:    i.UnitCost,
		Interval:    interval,
		Currency:    i.Currency,
		BaseModel:   i.BaseModel,
	}
}
