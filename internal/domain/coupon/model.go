package coupon

import (
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon represents a discount applied to subscription invoices
type Coupon struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	Type    types.CouponType    `db:"type" json:"type"`
	Cadence types.CouponCadence `db:"cadence" json:"cadence"`

	// AmountOff is used by fixed coupons, in main currency units
	AmountOff decimal.Decimal `db:"amount_off" json:"amount_off"`

	// PercentageOff is used by percentage coupons ex 15 for 15%
	PercentageOff decimal.Decimal `db:"percentage_off" json:"percentage_off"`

	Currency string `db:"currency" json:"currency"`

	types.BaseModel
}

func (c *Coupon) Validate() error {
	if c.ID == "" {
		return ierr.NewError("coupon id is required").
			WithHint("Coupon id is required").
			Mark(ierr.ErrValidation)
	}
	if err := c.Type.Validate(); err != nil {
		return err
	}
	if err := c.Cadence.Validate(); err != nil {
		return err
	}

	switch c.Type {
	case types.CouponTypeFixed:
		if c.AmountOff.IsNegative() {
			return ierr.NewError("amount off cannot be negative").
				WithHint("Fixed coupons need a non negative amount off").
				WithReportableDetails(map[string]any{"coupon_id": c.ID, "amount_off": c.AmountOff}).
				Mark(ierr.ErrValidation)
		}
	case types.CouponTypePercentage:
		if c.PercentageOff.IsNegative() || c.PercentageOff.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("percentage off must be between 0 and 100").
				WithHint("Percentage coupons need a percentage between 0 and 100").
				WithReportableDetails(map[string]any{"coupon_id": c.ID, "percentage_off": c.PercentageOff}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsOnce reports whether the coupon is issued in full exactly once
func (c *Coupon) IsOnce() bool {
	return c.Cadence == types.CouponCadenceOnce
}

// Discount returns the amount taken off subtotal. Fixed discounts scale by
// fraction, the share of a full period being billed, unless the coupon is
// issued once. The discount never exceeds the subtotal.
func (c *Coupon) Discount(subtotal, fraction decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Type {
	case types.CouponTypePercentage:
		discount = types.Percent(subtotal, c.PercentageOff)
	case types.CouponTypeFixed:
		discount = c.AmountOff
		if !c.IsOnce() {
			discount = discount.Mul(types.ClampFraction(fraction))
		}
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
