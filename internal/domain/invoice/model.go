package invoice

import (
	"time"

	"github.com/flexprice/billingcore/internal/domain/tax"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the result of a billing run, or a preview of one
type Invoice struct {
	ID             string     `db:"id" json:"id"`
	CustomerID     string     `db:"customer_id" json:"customer_id"`
	SubscriptionID string     `db:"subscription_id" json:"subscription_id,omitempty"`
	Currency       string     `db:"currency" json:"currency"`
	PeriodStart    *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd      *time.Time `db:"period_end" json:"period_end,omitempty"`
	BillDate       *time.Time `db:"bill_date" json:"bill_date,omitempty"`

	LineItems []*LineItem `json:"line_items"`
	Discounts []*Discount `json:"discounts,omitempty"`
	Taxes     []tax.Line  `json:"taxes,omitempty"`

	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	TotalDiscount decimal.Decimal `db:"total_discount" json:"total_discount"`
	TotalTax      decimal.Decimal `db:"total_tax" json:"total_tax"`
	Total         decimal.Decimal `db:"total" json:"total"`

	// TaxPreviewError is set when a tax preview was requested and failed
	TaxPreviewError string `json:"tax_preview_error,omitempty"`

	types.BaseModel
}

type LineItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	PeriodStart *time.Time      `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time      `db:"period_end" json:"period_end,omitempty"`
	Prorated    bool            `db:"prorated" json:"prorated"`

	// PendingLineItemID links a line folded in from a pending line item
	PendingLineItemID *string `db:"pending_line_item_id" json:"pending_line_item_id,omitempty"`
}

type Discount struct {
	CouponID string          `json:"coupon_id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
}

// Recalculate rounds every amount to the currency precision and fills the totals
func (inv *Invoice) Recalculate() {
	subtotal := make([]decimal.Decimal, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		li.Amount = types.RoundAmount(li.Quantity.Mul(li.UnitCost), inv.Currency)
		subtotal = append(subtotal, li.Amount)
	}
	inv.Subtotal = types.SumAmounts(inv.Currency, subtotal...)

	discounts := make([]decimal.Decimal, 0, len(inv.Discounts))
	for _, d := range inv.Discounts {
		d.Amount = types.RoundAmount(d.Amount, inv.Currency)
		discounts = append(discounts, d.Amount)
	}
	inv.TotalDiscount = types.SumAmounts(inv.Currency, discounts...)

	taxes := make([]decimal.Decimal, 0, len(inv.Taxes))
	for i := range inv.Taxes {
		inv.Taxes[i].Amount = types.RoundAmount(inv.Taxes[i].Amount, inv.Currency)
		taxes = append(taxes, inv.Taxes[i].Amount)
	}
	inv.TotalTax = types.SumAmounts(inv.Currency, taxes...)

	inv.Total = inv.Subtotal.Sub(inv.TotalDiscount).Add(inv.TotalTax)
}

// PendingLineItemIDs returns the ids of the pending line items folded into the invoice
func (inv *Invoice) PendingLineItemIDs() []string {
	ids := make([]string, 0)
	for _, li := range inv.LineItems {
		if li.PendingLineItemID != nil {
			ids = append(ids, *li.PendingLineItemID)
		}
	}
	return ids
}
