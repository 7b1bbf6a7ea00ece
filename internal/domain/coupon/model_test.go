package coupon

import (
	"testing"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscount(t *testing.T) {
	half := decimal.NewFromFloat(0.5)

	tests := []struct {
		name     string
		coupon   Coupon
		subtotal decimal.Decimal
		fraction decimal.Decimal
		want     decimal.Decimal
	}{
		{
			name:     "percentage_ignores_fraction",
			coupon:   Coupon{Type: types.CouponTypePercentage, PercentageOff: decimal.NewFromInt(10)},
			subtotal: decimal.NewFromInt(200),
			fraction: half,
			want:     decimal.NewFromInt(20),
		},
		{
			name:     "fixed_repeated_is_prorated",
			coupon:   Coupon{Type: types.CouponTypeFixed, Cadence: types.CouponCadenceRepeated, AmountOff: decimal.NewFromInt(30)},
			subtotal: decimal.NewFromInt(200),
			fraction: half,
			want:     decimal.NewFromInt(15),
		},
		{
			name:     "fixed_once_is_not_prorated",
			coupon:   Coupon{Type: types.CouponTypeFixed, Cadence: types.CouponCadenceOnce, AmountOff: decimal.NewFromInt(30)},
			subtotal: decimal.NewFromInt(200),
			fraction: half,
			want:     decimal.NewFromInt(30),
		},
		{
			name:     "capped_at_subtotal",
			coupon:   Coupon{Type: types.CouponTypeFixed, Cadence: types.CouponCadenceForever, AmountOff: decimal.NewFromInt(500)},
			subtotal: decimal.NewFromInt(200),
			fraction: decimal.NewFromInt(1),
			want:     decimal.NewFromInt(200),
		},
		{
			name:     "credit_subtotal_gets_nothing",
			coupon:   Coupon{Type: types.CouponTypePercentage, PercentageOff: decimal.NewFromInt(10)},
			subtotal: decimal.NewFromInt(-50),
			fraction: decimal.NewFromInt(1),
			want:     decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.Discount(tt.subtotal, tt.fraction)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		coupon  Coupon
		wantErr bool
	}{
		{
			name:   "fixed",
			coupon: Coupon{ID: "c1", Type: types.CouponTypeFixed, Cadence: types.CouponCadenceOnce, AmountOff: decimal.NewFromInt(5)},
		},
		{
			name:   "percentage",
			coupon: Coupon{ID: "c2", Type: types.CouponTypePercentage, Cadence: types.CouponCadenceForever, PercentageOff: decimal.NewFromInt(100)},
		},
		{
			name:    "missing_id",
			coupon:  Coupon{Type: types.CouponTypeFixed, Cadence: types.CouponCadenceOnce},
			wantErr: true,
		},
		{
			name:    "unknown_cadence",
			coupon:  Coupon{ID: "c3", Type: types.CouponTypeFixed, Cadence: "weekly"},
			wantErr: true,
		},
		{
			name:    "negative_amount",
			coupon:  Coupon{ID: "c4", Type: types.CouponTypeFixed, Cadence: types.CouponCadenceOnce, AmountOff: decimal.NewFromInt(-1)},
			wantErr: true,
		},
		{
			name:    "percentage_over_100",
			coupon:  Coupon{ID: "c5", Type: types.CouponTypePercentage, Cadence: types.CouponCadenceOnce, PercentageOff: decimal.NewFromInt(101)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coupon.Validate()
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
