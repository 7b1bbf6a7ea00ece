package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyConfig holds the display symbol and minor unit precision of a currency
type CurrencyConfig struct {
	Symbol    string
	Precision int32
}

// DEFAULT_CURRENCY_PRECISION applies to every currency not listed as zero decimal
const DEFAULT_CURRENCY_PRECISION int32 = 2

// CURRENCY_CODES_SYMBOLS is a map of 3 digit ISO currency codes to their symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"aud": "AU$",
	"cad": "CA$",
	"chf": "CHF",
	"sek": "kr",
	"nzd": "NZ$",
	"hkd": "HK$",
	"sgd": "S$",
	"jpy": "¥",
	"cny": "¥",
	"inr": "₹",
	"brl": "R$",
	"rub": "₽",
	"mxn": "MX$",
	"krw": "₩",
	"try": "₺",
	"zar": "R",
	"myr": "RM",
}

// zeroDecimalCurrencies have no minor unit, amounts round to whole numbers
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "isk": {}, "jpy": {}, "kmf": {}, "krw": {},
	"mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToLower(code)]; ok {
		return symbol
	}
	return code
}

// GetCurrencyPrecision returns the number of decimal places amounts in the currency keep
func GetCurrencyPrecision(code string) int32 {
	if IsZeroDecimalCurrency(code) {
		return 0
	}
	return DEFAULT_CURRENCY_PRECISION
}

func IsZeroDecimalCurrency(code string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(code)]
	return ok
}

func GetCurrencyConfig(code string) CurrencyConfig {
	return CurrencyConfig{
		Symbol:    GetCurrencySymbol(code),
		Precision: GetCurrencyPrecision(code),
	}
}

// FormatAmount renders an amount rounded to the currency precision with its symbol ex $12.50
func FormatAmount(amount decimal.Decimal, currency string) string {
	cfg := GetCurrencyConfig(currency)
	return cfg.Symbol + amount.StringFixed(cfg.Precision)
}
