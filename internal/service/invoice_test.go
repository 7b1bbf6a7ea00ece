package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/period"
	"github.com/flexprice/billingcore/internal/testutil"
	"github.com/flexprice/billingcore/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	billingSuite
	service   InvoiceService
	prorate   ProrationService
	april     period.BillingPeriod
	half      time.Time
	lineItems *testutil.InMemoryLineItemStore
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.billingSuite.SetupTest()
	s.service = NewInvoiceService(s.params())
	s.prorate = NewProrationService(s.params())
	s.april = period.BillingPeriod{Start: utc(2024, 4, 1), End: lastSecond(2024, 4, 30)}
	s.half = utc(2024, 4, 16)
	s.lineItems = s.GetStores().LineItemRepo.(*testutil.InMemoryLineItemStore)
}

func (s *InvoiceServiceSuite) pendingItem(id, customerID, subscriptionID, currency, unitCost string) *lineitem.PendingLineItem {
	return &lineitem.PendingLineItem{
		ID:             id,
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		Name:           "Setup fee",
		Quantity:       dec("1"),
		UnitCost:       dec(unitCost),
		Currency:       currency,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
}

func (s *InvoiceServiceSuite) TestSubscriptionInvoice() {
	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.Quantity = dec("2")
	sub.Addons = []*subscription.Addon{{ID: "addon_1", SubscriptionID: "sub_1", ItemID: s.seat.ID, Quantity: dec("3")}}
	sub.CouponIDs = []string{s.tenOff.ID}
	sub.TaxRates = []subscription.TaxRate{{Name: "Sales tax", Percentage: dec("5")}}
	s.store(sub)

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{})
	s.Require().NoError(err)

	s.Equal("cus_1", inv.CustomerID)
	s.Equal("sub_1", inv.SubscriptionID)
	s.Equal("usd", inv.Currency)
	s.Equal(s.april.Start, *inv.PeriodStart)
	s.Equal(s.april.End, *inv.PeriodEnd)

	s.Require().Len(inv.LineItems, 2)
	s.assertAmount("200", inv.LineItems[0].Amount)
	s.assertAmount("30", inv.LineItems[1].Amount)
	for _, li := range inv.LineItems {
		s.False(li.Prorated)
		s.Equal(inv.ID, li.InvoiceID)
	}

	s.assertAmount("230", inv.Subtotal)
	s.Require().Len(inv.Discounts, 1)
	s.assertAmount("23", inv.TotalDiscount)
	s.Require().Len(inv.Taxes, 1)
	s.assertAmount("10.35", inv.TotalTax)
	s.assertAmount("217.35", inv.Total)
	s.Empty(inv.TaxPreviewError)
	s.Equal(0, s.GetTaxAssessor().Calls())
}

func (s *InvoiceServiceSuite) TestCouponsApplySequentially() {
	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.Quantity = dec("2")
	sub.CouponIDs = []string{s.tenOff.ID, s.twentyOff.ID}

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{})
	s.Require().NoError(err)

	s.Require().Len(inv.Discounts, 2)
	s.assertAmount("20", inv.Discounts[0].Amount)
	s.assertAmount("20", inv.Discounts[1].Amount)
	s.assertAmount("160", inv.Total)
}

func (s *InvoiceServiceSuite) TestCouponNeverExceedsSubtotal() {
	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.Quantity = dec("0.1")
	sub.CouponIDs = []string{s.twentyOff.ID}

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{})
	s.Require().NoError(err)
	s.assertAmount("10", inv.Subtotal)
	s.assertAmount("10", inv.TotalDiscount)
	s.assertAmount("0", inv.Total)
}

func (s *InvoiceServiceSuite) TestShortCalendarPeriod() {
	short := period.BillingPeriod{Start: s.half, End: lastSecond(2024, 4, 30)}

	tests := []struct {
		name     string
		coupons  []string
		discount string
		total    string
	}{
		{name: "no coupon", total: "50"},
		{name: "repeated fixed coupon is prorated", coupons: []string{s.twentyOff.ID}, discount: "10", total: "40"},
		{name: "once coupon is not prorated", coupons: []string{s.onceOff.ID}, discount: "20", total: "30"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			sub := s.aprilSub("sub_cal", types.BillInAdvance)
			sub.SnapToNthDay = 1
			sub.StartDate = s.half
			sub.PeriodStart = short.Start
			sub.PeriodEnd = short.End
			sub.CouponIDs = tt.coupons

			inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, short, InvoiceOptions{})
			s.Require().NoError(err)

			s.Require().Len(inv.LineItems, 1)
			s.True(inv.LineItems[0].Prorated)
			s.assertAmount("0.5", inv.LineItems[0].Quantity)
			s.assertAmount("50", inv.Subtotal)
			if tt.discount != "" {
				s.assertAmount(tt.discount, inv.TotalDiscount)
			}
			s.assertAmount(tt.total, inv.Total)
		})
	}
}

func (s *InvoiceServiceSuite) TestTaxPreview() {
	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.Quantity = dec("2")

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{TaxPreview: true})
	s.Require().NoError(err)

	s.Equal(1, s.GetTaxAssessor().Calls())
	s.Require().Len(inv.Taxes, 1)
	s.Equal("VAT", inv.Taxes[0].Name)
	s.assertAmount("20", inv.TotalTax)
	s.assertAmount("220", inv.Total)
	s.Empty(inv.TaxPreviewError)
}

func (s *InvoiceServiceSuite) TestTaxPreviewAfterDiscount() {
	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.Quantity = dec("2")
	sub.CouponIDs = []string{s.tenOff.ID}
	sub.TaxRates = []subscription.TaxRate{{Name: "Sales tax", Percentage: dec("5")}}

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{TaxPreview: true})
	s.Require().NoError(err)

	s.Require().Len(inv.Taxes, 2)
	s.assertAmount("9", inv.Taxes[0].Amount)
	s.assertAmount("18", inv.Taxes[1].Amount)
	s.assertAmount("207", inv.Total)
}

func (s *InvoiceServiceSuite) TestTaxPreviewFailureKeepsInvoice() {
	s.GetTaxAssessor().Err = errors.New("tax service down")

	sub := s.aprilSub("sub_1", types.BillInArrears)
	sub.TaxRates = []subscription.TaxRate{{Name: "Sales tax", Percentage: dec("5")}}

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{TaxPreview: true})
	s.Require().NoError(err)

	s.True(strings.HasPrefix(inv.TaxPreviewError, "tax preview unavailable"), inv.TaxPreviewError)
	s.Contains(inv.TaxPreviewError, "tax service down")
	// fixed rates still apply
	s.Require().Len(inv.Taxes, 1)
	s.assertAmount("105", inv.Total)

	expected := `
# HELP billingcore_tax_preview_failures_total Tax previews that could not be computed
# TYPE billingcore_tax_preview_failures_total counter
billingcore_tax_preview_failures_total 1
`
	s.NoError(promtestutil.GatherAndCompare(s.GetMetrics().Registry(), strings.NewReader(expected), "billingcore_tax_preview_failures_total"))
}

func (s *InvoiceServiceSuite) TestTaxPreviewWithoutAssessor() {
	params := s.params()
	params.TaxAssessor = nil
	svc := NewInvoiceService(params)

	sub := s.aprilSub("sub_1", types.BillInArrears)
	inv, err := svc.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{TaxPreview: true})
	s.Require().NoError(err)
	s.Equal("tax preview unavailable: no tax service configured", inv.TaxPreviewError)
	s.assertAmount("100", inv.Total)
}

func (s *InvoiceServiceSuite) TestFoldPendingAndFinalize() {
	sub := s.store(s.aprilSub("sub_1", types.BillInArrears))
	s.Require().NoError(s.lineItems.CreateMany(s.GetContext(), []*lineitem.PendingLineItem{
		s.pendingItem("pli_1", "cus_1", "sub_1", "usd", "15"),
		s.pendingItem("pli_2", "cus_1", "sub_1", "eur", "99"),
		s.pendingItem("pli_3", "cus_1", "sub_other", "usd", "99"),
	}))

	inv, err := s.service.SubscriptionInvoice(s.GetContext(), sub, s.april, InvoiceOptions{IncludePending: true})
	s.Require().NoError(err)

	s.Require().Len(inv.LineItems, 2)
	s.Equal([]string{"pli_1"}, inv.PendingLineItemIDs())
	s.assertAmount("115", inv.Total)

	s.Require().NoError(s.service.Finalize(s.GetContext(), inv))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.assertAmount("115", stored.Total)

	pending, err := s.lineItems.ListPending(s.GetContext(), &lineitem.Filter{SubscriptionID: "sub_1"})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("pli_2", pending[0].ID)
}

func (s *InvoiceServiceSuite) TestUpcomingInvoice() {
	tests := []struct {
		name        string
		billIn      types.BillIn
		periodStart time.Time
		periodEnd   time.Time
	}{
		{
			name:        "advance bills the next period",
			billIn:      types.BillInAdvance,
			periodStart: utc(2024, 5, 1),
			periodEnd:   lastSecond(2024, 5, 31),
		},
		{
			name:        "arrears bills the current period",
			billIn:      types.BillInArrears,
			periodStart: utc(2024, 4, 1),
			periodEnd:   lastSecond(2024, 4, 30),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.ClearStores()
			s.setupCatalog()
			s.store(s.aprilSub("sub_1", tt.billIn))

			inv, err := s.service.UpcomingInvoice(s.GetContext(), UpcomingInvoiceRequest{
				SubscriptionID: "sub_1",
				Now:            lo.ToPtr(s.half),
			})
			s.Require().NoError(err)
			s.Equal(tt.periodStart, *inv.PeriodStart)
			s.Equal(tt.periodEnd, *inv.PeriodEnd)
			s.assertAmount("100", inv.Total)
		})
	}
}

func (s *InvoiceServiceSuite) TestUpcomingInvoiceWithChange() {
	s.store(s.aprilSub("sub_1", types.BillInAdvance))

	inv, err := s.service.UpcomingInvoice(s.GetContext(), UpcomingInvoiceRequest{
		SubscriptionID: "sub_1",
		Change:         &SubscriptionChangeRequest{Quantity: lo.ToPtr(dec("2"))},
		Now:            lo.ToPtr(s.half),
	})
	s.Require().NoError(err)

	// the next period at the new quantity plus the unbilled half of April
	s.Require().Len(inv.LineItems, 2)
	s.assertAmount("200", inv.LineItems[0].Amount)
	s.True(inv.LineItems[1].Prorated)
	s.Nil(inv.LineItems[1].PendingLineItemID)
	s.assertAmount("50", inv.LineItems[1].Amount)
	s.assertAmount("250", inv.Total)

	// previews store nothing
	s.Empty(s.lineItems.All(s.GetContext()))
	s.assertAmount("1", s.reload("sub_1").Quantity)
}

func (s *InvoiceServiceSuite) TestUpcomingInvoiceSurfacesProrationOnce() {
	tests := []struct {
		name     string
		billIn   types.BillIn
		prorated int
		total    string
	}{
		{name: "arrears shows the stored proration only", billIn: types.BillInArrears, prorated: 1, total: "350"},
		{name: "advance shows both", billIn: types.BillInAdvance, prorated: 2, total: "400"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.ClearStores()
			s.setupCatalog()
			s.store(s.aprilSub("sub_1", tt.billIn))

			_, err := s.prorate.Apply(s.GetContext(), SubscriptionChangeRequest{
				SubscriptionID: "sub_1",
				Quantity:       lo.ToPtr(dec("2")),
				ProrationDate:  lo.ToPtr(s.half),
			})
			s.Require().NoError(err)

			inv, err := s.service.UpcomingInvoice(s.GetContext(), UpcomingInvoiceRequest{
				SubscriptionID: "sub_1",
				Change:         &SubscriptionChangeRequest{Quantity: lo.ToPtr(dec("3"))},
				Now:            lo.ToPtr(s.half),
			})
			s.Require().NoError(err)

			prorated := lo.Filter(inv.LineItems, func(li *invoice.LineItem, _ int) bool {
				return li.Prorated
			})
			s.Len(prorated, tt.prorated)
			s.assertAmount(tt.total, inv.Total)
		})
	}
}

func (s *InvoiceServiceSuite) TestUpcomingInvoiceRejectsOtherSubscription() {
	s.store(s.aprilSub("sub_1", types.BillInAdvance))

	_, err := s.service.UpcomingInvoice(s.GetContext(), UpcomingInvoiceRequest{
		SubscriptionID: "sub_1",
		Change:         &SubscriptionChangeRequest{SubscriptionID: "sub_2", Quantity: lo.ToPtr(dec("2"))},
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestPendingItemInvoice() {
	s.Require().NoError(s.lineItems.CreateMany(s.GetContext(), []*lineitem.PendingLineItem{
		s.pendingItem("pli_1", "cus_1", "sub_1", "usd", "15"),
		s.pendingItem("pli_2", "cus_1", "sub_2", "usd", "25"),
		s.pendingItem("pli_3", "cus_2", "sub_3", "usd", "99"),
	}))

	inv, err := s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{CustomerID: "cus_1", TaxPreview: true})
	s.Require().NoError(err)

	s.Equal("cus_1", inv.CustomerID)
	s.Empty(inv.SubscriptionID)
	s.ElementsMatch([]string{"pli_1", "pli_2"}, inv.PendingLineItemIDs())
	s.assertAmount("40", inv.Subtotal)
	s.assertAmount("4", inv.TotalTax)
	s.assertAmount("44", inv.Total)
}

func (s *InvoiceServiceSuite) TestPendingItemInvoiceCurrencies() {
	s.Require().NoError(s.lineItems.CreateMany(s.GetContext(), []*lineitem.PendingLineItem{
		s.pendingItem("pli_1", "cus_1", "sub_1", "usd", "15"),
		s.pendingItem("pli_2", "cus_1", "sub_2", "eur", "25"),
	}))

	_, err := s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{CustomerID: "cus_1"})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	inv, err := s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{CustomerID: "cus_1", Currency: "eur"})
	s.Require().NoError(err)
	s.Equal("eur", inv.Currency)
	s.assertAmount("25", inv.Total)

	_, err = s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{CustomerID: "cus_1", Currency: "gbp"})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestPendingItemInvoiceNothingPending() {
	_, err := s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{CustomerID: "cus_1"})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.PendingItemInvoice(s.GetContext(), PendingItemInvoiceRequest{})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}
