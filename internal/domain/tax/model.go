package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// Address is the billing address a tax preview is computed for
type Address struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// LineItem is the taxable view of an invoice line
type LineItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Amount   decimal.Decimal `json:"amount"`
}

type Options struct {
	// Preview marks the request as a non committing estimate
	Preview bool `json:"preview"`
}

// Line is one tax charged on an invoice
type Line struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Assessor computes taxes for a set of line items
type Assessor interface {
	Assess(ctx context.Context, customerID string, address Address, currency string, items []LineItem, opts Options) ([]Line, error)
}
