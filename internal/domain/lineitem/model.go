package lineitem

import (
	"time"

	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
)

// PendingLineItem is a charge or credit waiting to be picked up by the next
// invoice of a customer. Proration lines are stored as pending line items.
type PendingLineItem struct {
	ID             string          `db:"id" json:"id"`
	SubscriptionID string          `db:"subscription_id" json:"subscription_id"`
	CustomerID     string          `db:"customer_id" json:"customer_id"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost       decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Currency       string          `db:"currency" json:"currency"`
	PeriodStart    *time.Time      `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd      *time.Time      `db:"period_end" json:"period_end,omitempty"`
	Prorated       bool            `db:"prorated" json:"prorated"`

	// SourceKey is the plan:<id> or item:<id> the line prices
	SourceKey string `db:"source_key" json:"source_key"`

	// InvoiceID is set once an invoice consumed the line
	InvoiceID *string `db:"invoice_id" json:"invoice_id,omitempty"`

	types.BaseModel
}

// Total is quantity times unit cost, unrounded
func (p *PendingLineItem) Total() decimal.Decimal {
	return p.Quantity.Mul(p.UnitCost)
}

func (p *PendingLineItem) IsInvoiced() bool {
	return p.InvoiceID != nil
}
