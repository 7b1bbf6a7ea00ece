package service

import (
	"time"

	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/proration"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/domain/tax"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// SubscriptionChangeRequest proposes new values for a subscription.
// Nil fields keep their current value.
type SubscriptionChangeRequest struct {
	SubscriptionID string           `json:"subscription_id" validate:"required"`
	PlanID         *string          `json:"plan_id,omitempty"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`

	// Addons replaces the addon list when ReplaceAddons is set, an empty
	// list with ReplaceAddons removes every addon
	Addons        []*subscription.Addon `json:"addons,omitempty"`
	ReplaceAddons bool                  `json:"replace_addons"`

	// ProrationDate defaults to now
	ProrationDate *time.Time `json:"proration_date,omitempty"`
}

func (r *SubscriptionChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Quantity != nil && r.Quantity.IsNegative() {
		return ierr.NewError("quantity must not be negative").
			WithHint("Quantity must not be negative").
			WithReportableDetails(map[string]any{"quantity": r.Quantity.String()}).
			Mark(ierr.ErrValidation)
	}

	for _, addon := range r.Addons {
		if addon == nil || (addon.PlanID == "") == (addon.ItemID == "") {
			return ierr.NewError("addon must reference exactly one of plan_id or item_id").
				WithHint("Every addon needs either a plan or an item").
				Mark(ierr.ErrValidation)
		}
		if addon.Quantity.IsNegative() {
			return ierr.NewError("addon quantity must not be negative").
				WithHint("Addon quantity must not be negative").
				WithReportableDetails(map[string]any{"addon": addon.Key()}).
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// applyTo returns a copy of sub with the change applied. The period and
// contract cursors are the ones of sub.
func (r *SubscriptionChangeRequest) applyTo(sub *subscription.Subscription) *subscription.Subscription {
	after := sub.Copy()
	if r.PlanID != nil {
		after.PlanID = *r.PlanID
	}
	if r.Quantity != nil {
		after.Quantity = *r.Quantity
	}
	if r.Amount != nil {
		after.Amount = lo.ToPtr(*r.Amount)
	}
	if r.ReplaceAddons {
		after.Addons = lo.Map(r.Addons, func(a *subscription.Addon, _ int) *subscription.Addon {
			c := a.Copy()
			c.SubscriptionID = sub.ID
			return c
		})
	}
	return after
}

// ProrationResponse is the outcome of previewing or applying a change
type ProrationResponse struct {
	SubscriptionID   string           `json:"subscription_id"`
	ProrationDate    time.Time        `json:"proration_date"`
	ChangedCycle     bool             `json:"changed_cycle"`
	PercentRemaining decimal.Decimal  `json:"percent_remaining"`
	Lines            []proration.Line `json:"lines"`
	Total            decimal.Decimal  `json:"total"`
	Currency         string           `json:"currency"`
	Applied          bool             `json:"applied"`

	// Subscription is the subscription after the change, persisted by Apply
	Subscription *subscription.Subscription `json:"subscription"`
}

// InvoiceOptions tunes how an invoice is assembled
type InvoiceOptions struct {
	// IncludePending folds the subscription's un-invoiced pending line items in
	IncludePending bool

	// TaxPreview asks the tax assessor for taxes on top of the fixed rates
	TaxPreview bool
	Address    tax.Address

	// extra lines appended after the priced and pending ones
	extra []*invoice.LineItem
}

// UpcomingInvoiceRequest previews the next invoice of a subscription,
// optionally as if Change had been applied at Now
type UpcomingInvoiceRequest struct {
	SubscriptionID string                     `json:"subscription_id" validate:"required"`
	Change         *SubscriptionChangeRequest `json:"change,omitempty"`
	Now            *time.Time                 `json:"now,omitempty"`
	TaxPreview     bool                       `json:"tax_preview"`
	Address        tax.Address                `json:"address"`
}

func (r *UpcomingInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Change != nil {
		if r.Change.SubscriptionID == "" {
			r.Change.SubscriptionID = r.SubscriptionID
		}
		if r.Change.SubscriptionID != r.SubscriptionID {
			return ierr.NewError("change targets another subscription").
				WithHint("The proposed change must be for the same subscription").
				Mark(ierr.ErrValidation)
		}
		return r.Change.Validate()
	}
	return nil
}

// PendingItemInvoiceRequest bills a customer's pending line items on their own
type PendingItemInvoiceRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`

	// Currency selects which pending items to bill when they mix currencies
	Currency   string      `json:"currency,omitempty"`
	TaxPreview bool        `json:"tax_preview"`
	Address    tax.Address `json:"address"`
}

func (r *PendingItemInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}
