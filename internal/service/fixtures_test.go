package service

import (
	"time"

	"github.com/flexprice/billingcore/internal/domain/coupon"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/testutil"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// billingSuite seeds a small catalog shared by the service tests
type billingSuite struct {
	testutil.BaseServiceTestSuite

	monthly   *plan.Plan
	quarterly *plan.Plan
	seat      *plan.Item
	tenOff    *coupon.Coupon
	twentyOff *coupon.Coupon
	onceOff   *coupon.Coupon
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func utc(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastSecond(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
}

func (s *billingSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupCatalog()
}

func (s *billingSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Metrics:      s.GetMetrics(),
		Locks:        NewSubscriptionLocks(),
		SubRepo:      stores.SubscriptionRepo,
		PlanRepo:     stores.PlanRepo,
		LineItemRepo: stores.LineItemRepo,
		CouponRepo:   stores.CouponRepo,
		InvoiceRepo:  stores.InvoiceRepo,
		TaxAssessor:  s.GetTaxAssessor(),
	}
}

func (s *billingSuite) setupCatalog() {
	ctx := s.GetContext()
	stores := s.GetStores()
	month := types.NewInterval(types.IntervalUnitMonth, 1)

	s.monthly = &plan.Plan{
		ID:          "plan_monthly",
		Name:        "Pro",
		PricingMode: types.PricingModePerUnit,
		UnitCost:    dec("100"),
		Interval:    month,
		Currency:    "usd",
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	s.quarterly = &plan.Plan{
		ID:          "plan_quarterly",
		Name:        "Pro Quarterly",
		PricingMode: types.PricingModePerUnit,
		UnitCost:    dec("270"),
		Interval:    types.NewInterval(types.IntervalUnitMonth, 3),
		Currency:    "usd",
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	s.seat = &plan.Item{
		ID:          "item_seat",
		Name:        "Extra seat",
		PricingMode: types.PricingModePerUnit,
		UnitCost:    dec("10"),
		Currency:    "usd",
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	s.NoError(stores.PlanRepo.Create(ctx, s.monthly))
	s.NoError(stores.PlanRepo.Create(ctx, s.quarterly))
	s.NoError(stores.PlanRepo.CreateItem(ctx, s.seat))

	s.tenOff = &coupon.Coupon{
		ID:            "coupon_10pct",
		Name:          "10% off",
		Type:          types.CouponTypePercentage,
		Cadence:       types.CouponCadenceForever,
		PercentageOff: dec("10"),
	}
	s.twentyOff = &coupon.Coupon{
		ID:        "coupon_20usd",
		Name:      "$20 off",
		Type:      types.CouponTypeFixed,
		Cadence:   types.CouponCadenceRepeated,
		AmountOff: dec("20"),
		Currency:  "usd",
	}
	s.onceOff = &coupon.Coupon{
		ID:        "coupon_20usd_once",
		Name:      "$20 off once",
		Type:      types.CouponTypeFixed,
		Cadence:   types.CouponCadenceOnce,
		AmountOff: dec("20"),
		Currency:  "usd",
	}
	for _, c := range []*coupon.Coupon{s.tenOff, s.twentyOff, s.onceOff} {
		s.NoError(stores.CouponRepo.Create(ctx, c))
	}
}

// aprilSub is an active monthly subscription living its April 2024 period.
// Advance subscriptions already billed April, arrears ones bill it on May 1.
func (s *billingSuite) aprilSub(id string, billIn types.BillIn) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 id,
		CustomerID:         "cus_1",
		PlanID:             s.monthly.ID,
		Quantity:           dec("1"),
		BillIn:             billIn,
		ContractRenewal:    types.ContractRenewalAuto,
		SubscriptionStatus: types.SubscriptionStatusActive,
		StartDate:          utc(2024, 1, 1),
		PeriodStart:        utc(2024, 4, 1),
		PeriodEnd:          lastSecond(2024, 4, 30),
		RenewsNext:         utc(2024, 5, 1),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	if billIn == types.BillInAdvance {
		sub.RenewedLast = lo.ToPtr(utc(2024, 4, 1))
	}
	return sub
}

func (s *billingSuite) store(sub *subscription.Subscription) *subscription.Subscription {
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *billingSuite) reload(id string) *subscription.Subscription {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sub
}

func (s *billingSuite) assertAmount(expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	s.True(dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}
