package service

import (
	"context"
	"time"

	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/domain/tax"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/period"
	"github.com/flexprice/billingcore/internal/pricing"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Invoice kinds reported to metrics
const (
	invoiceKindSubscription = "subscription"
	invoiceKindUpcoming     = "upcoming"
	invoiceKindPendingItems = "pending_items"
)

type InvoiceService interface {
	// SubscriptionInvoice builds the invoice of a subscription for one billing period
	SubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, p period.BillingPeriod, opts InvoiceOptions) (*invoice.Invoice, error)

	// UpcomingInvoice previews the next invoice, optionally with a proposed change
	UpcomingInvoice(ctx context.Context, req UpcomingInvoiceRequest) (*invoice.Invoice, error)

	// PendingItemInvoice bills a customer's pending line items on their own
	PendingItemInvoice(ctx context.Context, req PendingItemInvoiceRequest) (*invoice.Invoice, error)

	// Finalize stores the invoice and marks the pending line items it consumed
	Finalize(ctx context.Context, inv *invoice.Invoice) error
}

type invoiceService struct {
	ServiceParams
	engine *pricing.Engine
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		engine:        pricing.NewEngine(),
	}
}

func (s *invoiceService) SubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, p period.BillingPeriod, opts InvoiceOptions) (*invoice.Invoice, error) {
	catalog, err := loadCatalog(ctx, s.PlanRepo, sub)
	if err != nil {
		return nil, err
	}

	inv, err := s.buildSubscriptionInvoice(ctx, sub, catalog, p, opts)
	if err != nil {
		return nil, err
	}

	s.Metrics.InvoiceBuilt(invoiceKindSubscription)
	return inv, nil
}

func (s *invoiceService) UpcomingInvoice(ctx context.Context, req UpcomingInvoiceRequest) (*invoice.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.Now != nil {
		now = *req.Now
	}
	now = now.In(sub.Location())

	opts := InvoiceOptions{
		IncludePending: true,
		TaxPreview:     req.TaxPreview,
		Address:        req.Address,
	}

	if req.Change == nil {
		catalog, err := loadCatalog(ctx, s.PlanRepo, sub)
		if err != nil {
			return nil, err
		}
		inv, err := s.buildUpcoming(ctx, sub, catalog, opts, nil)
		if err != nil {
			return nil, err
		}
		s.Metrics.InvoiceBuilt(invoiceKindUpcoming)
		return inv, nil
	}

	c, err := computeChange(ctx, s.PlanRepo, sub, *req.Change, now)
	if err != nil {
		return nil, err
	}

	if c.proration.Diff().ChangedCycle {
		periods, err := period.NewBillingPeriods(c.after, c.afterPlan)
		if err != nil {
			return nil, err
		}
		periods.ResetAfterChangedDuration(now)
	}

	lines, err := s.surfacingProrations(ctx, c)
	if err != nil {
		return nil, err
	}

	inv, err := s.buildUpcoming(ctx, c.after, c.catalog, opts, lines)
	if err != nil {
		return nil, err
	}

	s.Metrics.InvoiceBuilt(invoiceKindUpcoming)
	return inv, nil
}

// surfacingProrations returns the hypothetical proration lines the upcoming
// invoice shows. An arrears subscription surfaces the proration of an
// addon or plan only once: when a prorated pending line for the same
// source is already waiting, the stored line is the one shown.
func (s *invoiceService) surfacingProrations(ctx context.Context, c *change) ([]*invoice.LineItem, error) {
	// trials and ended subscriptions are never prorated
	switch c.after.SubscriptionStatus {
	case types.SubscriptionStatusTrialing, types.SubscriptionStatusFinished, types.SubscriptionStatusCanceled:
		return nil, nil
	}

	pending := make(map[string]bool)
	result := make([]*invoice.LineItem, 0)
	for _, line := range c.proration.Lines() {
		if c.before.BillIn == types.BillInArrears {
			waiting, ok := pending[line.SourceKey]
			if !ok {
				var err error
				waiting, err = s.LineItemRepo.HasPendingProration(ctx, c.before.ID, line.SourceKey)
				if err != nil {
					return nil, err
				}
				pending[line.SourceKey] = waiting
			}
			if waiting {
				continue
			}
		}

		result = append(result, &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			Name:        line.Name,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			PeriodStart: lo.ToPtr(line.PeriodStart),
			PeriodEnd:   lo.ToPtr(line.PeriodEnd),
			Prorated:    true,
		})
	}
	return result, nil
}

func (s *invoiceService) buildUpcoming(ctx context.Context, sub *subscription.Subscription, catalog *plan.Catalog, opts InvoiceOptions, extra []*invoice.LineItem) (*invoice.Invoice, error) {
	pl, err := catalog.Plan(sub.PlanID)
	if err != nil {
		return nil, err
	}

	periods, err := period.NewBillingPeriods(sub, pl)
	if err != nil {
		return nil, err
	}

	opts.extra = extra
	return s.buildSubscriptionInvoice(ctx, sub, catalog, periods.ForUpcomingInvoice(), opts)
}

func (s *invoiceService) buildSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, catalog *plan.Catalog, p period.BillingPeriod, opts InvoiceOptions) (*invoice.Invoice, error) {
	pl, err := catalog.Plan(sub.PlanID)
	if err != nil {
		return nil, err
	}

	periods, err := period.NewBillingPeriods(sub, pl)
	if err != nil {
		return nil, err
	}
	// a short first calendar period bills its share of a full interval
	fraction := periods.PercentOfPeriod(p)

	inv := newInvoice(ctx, sub.CustomerID, pl.Currency)
	inv.SubscriptionID = sub.ID
	inv.PeriodStart = lo.ToPtr(p.Start)
	inv.PeriodEnd = lo.ToPtr(p.End)
	inv.BillDate = p.BillDate

	lines, err := s.pricedLines(inv, pl, sub.Quantity, sub.Amount, fraction, p)
	if err != nil {
		return nil, err
	}
	inv.LineItems = append(inv.LineItems, lines...)

	for _, addon := range sub.Addons {
		addonPl, err := addonPlan(catalog, addon, pl)
		if err != nil {
			return nil, err
		}
		lines, err := s.pricedLines(inv, addonPl, addon.Quantity, addon.Amount, fraction, p)
		if err != nil {
			return nil, err
		}
		inv.LineItems = append(inv.LineItems, lines...)
	}

	if opts.IncludePending {
		pending, err := s.LineItemRepo.ListPending(ctx, &lineitem.Filter{SubscriptionID: sub.ID})
		if err != nil {
			return nil, err
		}
		s.foldPending(inv, pending)
	}

	for _, extra := range opts.extra {
		extra.InvoiceID = inv.ID
		inv.LineItems = append(inv.LineItems, extra)
	}
	inv.Recalculate()

	if err := s.applyDiscounts(ctx, inv, sub.CouponIDs, fraction); err != nil {
		return nil, err
	}

	s.applyTaxes(ctx, inv, sub.TaxRates, opts)
	inv.Recalculate()

	s.Logger.Debugw("built subscription invoice",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"period_start", p.Start,
		"period_end", p.End,
		"total", inv.Total.String(),
	)
	return inv, nil
}

func (s *invoiceService) PendingItemInvoice(ctx context.Context, req PendingItemInvoiceRequest) (*invoice.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pending, err := s.LineItemRepo.ListPending(ctx, &lineitem.Filter{CustomerID: req.CustomerID})
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currencies := lo.Uniq(lo.Map(pending, func(item *lineitem.PendingLineItem, _ int) string {
			return item.Currency
		}))
		if len(currencies) > 1 {
			return nil, ierr.NewError("pending line items use more than one currency").
				WithHint("Choose the currency to invoice").
				WithReportableDetails(map[string]any{
					"customer_id": req.CustomerID,
					"currencies":  currencies,
				}).
				Mark(ierr.ErrValidation)
		}
		if len(currencies) == 1 {
			currency = currencies[0]
		}
	}

	pending = lo.Filter(pending, func(item *lineitem.PendingLineItem, _ int) bool {
		return item.Currency == currency
	})
	if len(pending) == 0 {
		return nil, ierr.NewError("no pending line items to invoice").
			WithHint("The customer has nothing pending to invoice").
			WithReportableDetails(map[string]any{
				"customer_id": req.CustomerID,
				"currency":    currency,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	inv := newInvoice(ctx, req.CustomerID, currency)
	s.foldPending(inv, pending)
	inv.Recalculate()

	s.applyTaxes(ctx, inv, nil, InvoiceOptions{TaxPreview: req.TaxPreview, Address: req.Address})
	inv.Recalculate()

	s.Metrics.InvoiceBuilt(invoiceKindPendingItems)
	s.Logger.Debugw("built pending items invoice",
		"customer_id", req.CustomerID,
		"lines", len(inv.LineItems),
		"total", inv.Total.String(),
	)
	return inv, nil
}

func (s *invoiceService) Finalize(ctx context.Context, inv *invoice.Invoice) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		ids := inv.PendingLineItemIDs()
		if len(ids) == 0 {
			return nil
		}
		return s.LineItemRepo.MarkInvoiced(ctx, ids, inv.ID)
	})
}

func newInvoice(ctx context.Context, customerID, currency string) *invoice.Invoice {
	return &invoice.Invoice{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CustomerID: customerID,
		Currency:   currency,
		LineItems:  make([]*invoice.LineItem, 0),
		Discounts:  make([]*invoice.Discount, 0),
		Taxes:      make([]tax.Line, 0),
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}
}

// pricedLines prices quantity units of the plan for the period. Lines are
// priced at the full quantity first so tiers apply to the real usage, then
// scaled by fraction.
func (s *invoiceService) pricedLines(inv *invoice.Invoice, pl *plan.Plan, quantity decimal.Decimal, amount *decimal.Decimal, fraction decimal.Decimal, p period.BillingPeriod) ([]*invoice.LineItem, error) {
	items, err := s.engine.Price(pl, quantity, amount)
	if err != nil {
		return nil, err
	}

	prorated := fraction.LessThan(decimal.NewFromInt(1))
	lines := make([]*invoice.LineItem, 0, len(items))
	for _, item := range items {
		qty := item.Quantity
		if prorated {
			qty = types.RoundQuantity(qty.Mul(fraction))
		}
		if qty.IsZero() {
			continue
		}

		lines = append(lines, &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:   inv.ID,
			Name:        item.Name,
			Description: item.Description,
			Quantity:    qty,
			UnitCost:    item.UnitCost,
			PeriodStart: lo.ToPtr(p.Start),
			PeriodEnd:   lo.ToPtr(p.End),
			Prorated:    prorated,
		})
	}
	return lines, nil
}

func (s *invoiceService) foldPending(inv *invoice.Invoice, pending []*lineitem.PendingLineItem) {
	for _, item := range pending {
		if item.Currency != inv.Currency {
			s.Logger.Warnw("skipping pending line item in another currency",
				"pending_line_item_id", item.ID,
				"currency", item.Currency,
				"invoice_currency", inv.Currency,
			)
			continue
		}

		inv.LineItems = append(inv.LineItems, &invoice.LineItem{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:         inv.ID,
			Name:              item.Name,
			Description:       item.Description,
			Quantity:          item.Quantity,
			UnitCost:          item.UnitCost,
			PeriodStart:       item.PeriodStart,
			PeriodEnd:         item.PeriodEnd,
			Prorated:          item.Prorated,
			PendingLineItemID: lo.ToPtr(item.ID),
		})
	}
}

// applyDiscounts takes each coupon off what the previous ones left. Fixed
// coupons in another currency do not apply.
func (s *invoiceService) applyDiscounts(ctx context.Context, inv *invoice.Invoice, couponIDs []string, fraction decimal.Decimal) error {
	if len(couponIDs) == 0 {
		return nil
	}

	coupons, err := s.CouponRepo.GetMany(ctx, couponIDs)
	if err != nil {
		return err
	}

	remaining := inv.Subtotal
	for _, c := range coupons {
		if c.Type == types.CouponTypeFixed && c.Currency != "" && c.Currency != inv.Currency {
			s.Logger.Warnw("skipping coupon in another currency",
				"coupon_id", c.ID,
				"currency", c.Currency,
				"invoice_currency", inv.Currency,
			)
			continue
		}

		amount := types.RoundAmount(c.Discount(remaining, fraction), inv.Currency)
		if amount.IsZero() {
			continue
		}

		inv.Discounts = append(inv.Discounts, &invoice.Discount{
			CouponID: c.ID,
			Name:     c.Name,
			Amount:   amount,
		})
		remaining = remaining.Sub(amount)
	}

	inv.Recalculate()
	return nil
}

// applyTaxes adds the subscription's fixed rates and, when asked, the
// assessor's taxes. A failed preview is reported on the invoice instead of
// failing the whole build.
func (s *invoiceService) applyTaxes(ctx context.Context, inv *invoice.Invoice, rates []subscription.TaxRate, opts InvoiceOptions) {
	taxable := inv.Subtotal.Sub(inv.TotalDiscount)
	if !taxable.IsPositive() {
		return
	}

	for _, rate := range rates {
		inv.Taxes = append(inv.Taxes, tax.Line{
			Name:       rate.Name,
			Percentage: rate.Percentage,
			Amount:     types.Percent(taxable, rate.Percentage),
		})
	}

	if !opts.TaxPreview {
		return
	}

	if s.TaxAssessor == nil {
		inv.TaxPreviewError = "tax preview unavailable: no tax service configured"
		return
	}

	lines, err := s.TaxAssessor.Assess(ctx, inv.CustomerID, opts.Address, inv.Currency, taxableItems(inv), tax.Options{Preview: true})
	if err != nil {
		err = ierr.WithError(err).
			WithHint("tax preview unavailable").
			WithReportableDetails(map[string]any{
				"customer_id": inv.CustomerID,
				"invoice_id":  inv.ID,
			}).
			Mark(ierr.ErrTaxCalculation)

		s.Metrics.TaxPreviewFailed()
		s.Logger.Warnw("tax preview failed",
			"customer_id", inv.CustomerID,
			"invoice_id", inv.ID,
			"error", err,
		)
		inv.TaxPreviewError = "tax preview unavailable: " + err.Error()
		return
	}

	inv.Taxes = append(inv.Taxes, lines...)
}

// taxableItems spreads invoice discounts over the lines pro rata so the
// assessor taxes what the customer pays
func taxableItems(inv *invoice.Invoice) []tax.LineItem {
	share := decimal.NewFromInt(1)
	if inv.Subtotal.IsPositive() && inv.TotalDiscount.IsPositive() {
		share = inv.Subtotal.Sub(inv.TotalDiscount).Div(inv.Subtotal)
	}

	return lo.Map(inv.LineItems, func(li *invoice.LineItem, _ int) tax.LineItem {
		return tax.LineItem{
			Name:     li.Name,
			Quantity: li.Quantity,
			UnitCost: li.UnitCost,
			Amount:   types.RoundAmount(li.Amount.Mul(share), inv.Currency),
		}
	})
}
