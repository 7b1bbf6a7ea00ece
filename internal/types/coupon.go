package types

import (
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/samber/lo"
)

// CouponType is how a coupon computes its discount
type CouponType string

const (
	// CouponTypeFixed takes a fixed amount off, scaled to the billed share of a period
	CouponTypeFixed CouponType = "fixed"
	// CouponTypePercentage takes a percentage of the subtotal
	CouponTypePercentage CouponType = "percentage"
)

var CouponTypeValues = []CouponType{CouponTypeFixed, CouponTypePercentage}

func (t CouponType) Validate() error {
	if !lo.Contains(CouponTypeValues, t) {
		return ierr.NewError("invalid coupon type").
			WithHint("Coupon type must be fixed or percentage").
			WithReportableDetails(map[string]any{
				"allowed_values": CouponTypeValues,
				"provided_value": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CouponCadence is how often a coupon applies
type CouponCadence string

const (
	// CouponCadenceOnce applies in full on one invoice, never prorated
	CouponCadenceOnce     CouponCadence = "once"
	CouponCadenceRepeated CouponCadence = "repeated"
	CouponCadenceForever  CouponCadence = "forever"
)

var CouponCadenceValues = []CouponCadence{CouponCadenceOnce, CouponCadenceRepeated, CouponCadenceForever}

func (c CouponCadence) Validate() error {
	if !lo.Contains(CouponCadenceValues, c) {
		return ierr.NewError("invalid coupon cadence").
			WithHint("Coupon cadence must be once, repeated or forever").
			WithReportableDetails(map[string]any{
				"allowed_values": CouponCadenceValues,
				"provided_value": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
