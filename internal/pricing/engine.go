package pricing

import (
	"fmt"

	"github.com/flexprice/billingcore/internal/domain/plan"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one priced line of a plan
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Total is quantity times unit cost, unrounded
func (l LineItem) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// Engine turns a plan and a quantity into priced line items
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Price prices quantity units of the plan. amount is required for custom
// pricing and ignored otherwise, a nil amount is not the same as zero.
func (e *Engine) Price(p *plan.Plan, quantity decimal.Decimal, amount *decimal.Decimal) ([]LineItem, error) {
	if quantity.IsNegative() {
		return nil, ierr.NewErrorf("quantity %s is negative", quantity).
			WithHint("Quantity must not be negative").
			WithReportableDetails(map[string]any{"plan_id": p.ID, "quantity": quantity.String()}).
			Mark(ierr.ErrValidation)
	}

	switch p.PricingMode {
	case types.PricingModePerUnit:
		return []LineItem{{
			Name:     p.Name,
			Quantity: quantity,
			UnitCost: p.UnitCost,
		}}, nil

	case types.PricingModeCustom:
		if amount == nil {
			return nil, ierr.NewErrorf("plan %s uses custom pricing but no amount was given", p.ID).
				WithHint("Custom priced subscriptions need an amount").
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrMissingCustomAmount)
		}
		return []LineItem{{
			Name:     p.Name,
			Quantity: quantity,
			UnitCost: *amount,
		}}, nil

	case types.PricingModeTiered, types.PricingModeVolume:
		if err := p.Tiers.Validate(); err != nil {
			return nil, err
		}
		if p.PricingMode == types.PricingModeVolume {
			return PriceVolume(p.Name, p.Tiers, quantity), nil
		}
		return PriceTiers(p.Name, p.Tiers, quantity), nil

	default:
		return nil, ierr.NewErrorf("pricing mode %s is not supported", p.PricingMode).
			WithHint("Pricing mode must be per_unit, tiered, volume or custom").
			WithReportableDetails(map[string]any{
				"plan_id":        p.ID,
				"pricing_mode":   p.PricingMode,
				"allowed_values": types.PricingModeValues,
			}).
			Mark(ierr.ErrPricingModeUnsupported)
	}
}

// PriceTiers prices each tier's portion of quantity at that tier's rate, one
// line per tier consumed. A tier flat fee becomes its own line of quantity 1.
// Units past a bounded last tier are priced at the last tier's rate.
// The tier table must be valid.
func PriceTiers(name string, tiers plan.JSONBTiers, quantity decimal.Decimal) []LineItem {
	lines := make([]LineItem, 0, len(tiers))
	remaining := quantity
	lower := decimal.Zero

	for i, tier := range tiers {
		if !remaining.IsPositive() {
			break
		}

		upTo := tier.UpTo
		inTier := remaining
		if upTo != nil {
			if size := upTo.Sub(lower); inTier.GreaterThan(size) {
				if i == len(tiers)-1 {
					upTo = nil
				} else {
					inTier = size
				}
			}
		}

		lines = append(lines, LineItem{
			Name:        name,
			Description: fmt.Sprintf("Tier %d (%s)", i+1, tierRange(lower, upTo)),
			Quantity:    inTier,
			UnitCost:    tier.UnitCost,
		})
		if !tier.FlatFee.IsZero() {
			lines = append(lines, LineItem{
				Name:        name,
				Description: fmt.Sprintf("Tier %d flat fee", i+1),
				Quantity:    decimal.NewFromInt(1),
				UnitCost:    tier.FlatFee,
			})
		}

		remaining = remaining.Sub(inTier)
		if tier.UpTo != nil {
			lower = *tier.UpTo
		}
	}

	return lines
}

// PriceVolume prices every unit at the rate of the tier containing quantity.
// A quantity past a bounded last tier falls in the last tier.
// With a flat fee the blended price is a single line of quantity 1.
// The tier table must be valid.
func PriceVolume(name string, tiers plan.JSONBTiers, quantity decimal.Decimal) []LineItem {
	if !quantity.IsPositive() {
		return []LineItem{}
	}

	index := len(tiers) - 1
	for i, tier := range tiers {
		if tier.UpTo == nil || quantity.LessThanOrEqual(*tier.UpTo) {
			index = i
			break
		}
	}

	lower := decimal.Zero
	if index > 0 {
		lower = *tiers[index-1].UpTo
	}
	tier := tiers[index]
	upTo := tier.UpTo
	if upTo != nil && quantity.GreaterThan(*upTo) {
		upTo = nil
	}
	description := fmt.Sprintf("Volume tier %d (%s)", index+1, tierRange(lower, upTo))

	if tier.FlatFee.IsZero() {
		return []LineItem{{
			Name:        name,
			Description: description,
			Quantity:    quantity,
			UnitCost:    tier.UnitCost,
		}}
	}

	return []LineItem{{
		Name:        name,
		Description: fmt.Sprintf("%s, %s units", description, quantity),
		Quantity:    decimal.NewFromInt(1),
		UnitCost:    quantity.Mul(tier.UnitCost).Add(tier.FlatFee),
	}}
}

func tierRange(lower decimal.Decimal, upTo *decimal.Decimal) string {
	if upTo == nil {
		return fmt.Sprintf("%s+", lower)
	}
	return fmt.Sprintf("%s - %s", lower, upTo)
}

// Total sums the line totals exactly and rounds once to the currency precision
func Total(lines []LineItem, currency string) decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		totals = append(totals, l.Total())
	}
	return types.SumAmounts(currency, totals...)
}
