package types

import (
	"github.com/shopspring/decimal"
)

// QUANTITY_PRECISION is the number of decimal places prorated quantities keep
const QUANTITY_PRECISION int32 = 4

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

// RoundQuantity rounds a (possibly prorated) quantity to QUANTITY_PRECISION places.
// Rounding is half away from zero.
func RoundQuantity(q decimal.Decimal) decimal.Decimal {
	return q.Round(QUANTITY_PRECISION)
}

// RoundAmount rounds a money amount to the precision of its currency
func RoundAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(currency))
}

// SumAmounts adds amounts exactly and rounds the result once to the currency precision
func SumAmounts(currency string, amounts ...decimal.Decimal) decimal.Decimal {
	return RoundAmount(decimal.Sum(decimal.Zero, amounts...), currency)
}

// Percent returns pct percent of amount ex Percent(200, 15) = 30
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimalHundred)
}

// ClampFraction bounds f to [0, 1]
func ClampFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(decimalOne) {
		return decimalOne
	}
	return f
}

// AmountsEqual compares two amounts after rounding both to the currency precision
func AmountsEqual(a, b decimal.Decimal, currency string) bool {
	return RoundAmount(a, currency).Equal(RoundAmount(b, currency))
}
