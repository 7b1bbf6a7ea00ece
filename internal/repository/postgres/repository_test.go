package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/flexprice/billingcore/internal/testutil"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *postgres.DB
	log  *logger.Logger
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	conn, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.mock = mock
	s.log = logger.NewNoopLogger()
	s.db = postgres.NewFromSQLX(sqlx.NewDb(conn, "sqlmock"), s.log)
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

var created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (s *RepositorySuite) TestPlanGet() {
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "pricing_mode", "unit_cost", "tiers",
		"interval.interval_unit", "interval.interval_count",
		"currency", "tenant_id", "status", "created_at", "updated_at",
	}).AddRow(
		"plan_monthly", "Monthly", "", "per_unit", "100", nil,
		"month", 1,
		"usd", types.DefaultTenantID, "active", created, created,
	)
	s.mock.ExpectQuery("SELECT (.+) FROM plans WHERE").
		WithArgs("plan_monthly", types.DefaultTenantID).
		WillReturnRows(rows)

	repo := NewPlanRepository(s.db, s.log)
	p, err := repo.Get(testutil.SetupContext(), "plan_monthly")
	s.Require().NoError(err)
	s.Equal(types.IntervalUnitMonth, p.Interval.Unit)
	s.Equal(1, p.Interval.Count)
	s.True(decimal.NewFromInt(100).Equal(p.UnitCost))
	s.Equal(types.PricingModePerUnit, p.PricingMode)
}

func (s *RepositorySuite) TestPlanGetNotFound() {
	s.mock.ExpectQuery("SELECT (.+) FROM plans WHERE").
		WithArgs("plan_missing", types.DefaultTenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPlanRepository(s.db, s.log)
	_, err := repo.Get(testutil.SetupContext(), "plan_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestPlanCreateDuplicate() {
	s.mock.ExpectExec("INSERT INTO plans").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	repo := NewPlanRepository(s.db, s.log)
	err := repo.Create(testutil.SetupContext(), &plan.Plan{
		ID:          "plan_monthly",
		PricingMode: types.PricingModePerUnit,
		UnitCost:    decimal.NewFromInt(100),
		Interval:    types.NewInterval(types.IntervalUnitMonth, 1),
		Currency:    "usd",
	})
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestPlanCreateRejectsInvalidPlan() {
	repo := NewPlanRepository(s.db, s.log)
	err := repo.Create(testutil.SetupContext(), &plan.Plan{ID: "plan_bad"})
	s.True(ierr.IsValidation(err))
}

func (s *RepositorySuite) couponRow(rows *sqlmock.Rows, id, cadence string) *sqlmock.Rows {
	return rows.AddRow(id, id, "fixed", cadence, "20", "0", "usd", types.DefaultTenantID, "active", created, created)
}

func (s *RepositorySuite) TestCouponGetManyKeepsRequestedOrder() {
	cols := []string{"id", "name", "type", "cadence", "amount_off", "percentage_off", "currency",
		"tenant_id", "status", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols)
	s.couponRow(rows, "coupon_a", "once")
	s.couponRow(rows, "coupon_b", "forever")

	s.mock.ExpectQuery("SELECT (.+) FROM coupons WHERE").
		WithArgs(pq.Array([]string{"coupon_b", "coupon_a"}), types.DefaultTenantID).
		WillReturnRows(rows)

	repo := NewCouponRepository(s.db, s.log)
	coupons, err := repo.GetMany(testutil.SetupContext(), []string{"coupon_b", "coupon_a"})
	s.Require().NoError(err)
	s.Require().Len(coupons, 2)
	s.Equal("coupon_b", coupons[0].ID)
	s.Equal("coupon_a", coupons[1].ID)
	s.True(coupons[1].IsOnce())
}

func (s *RepositorySuite) TestCouponGetManyMissing() {
	cols := []string{"id", "name", "type", "cadence", "amount_off", "percentage_off", "currency",
		"tenant_id", "status", "created_at", "updated_at"}
	rows := s.couponRow(sqlmock.NewRows(cols), "coupon_a", "once")

	s.mock.ExpectQuery("SELECT (.+) FROM coupons WHERE").
		WillReturnRows(rows)

	repo := NewCouponRepository(s.db, s.log)
	_, err := repo.GetMany(testutil.SetupContext(), []string{"coupon_a", "coupon_gone"})
	s.True(ierr.IsNotFound(err))
}

var subscriptionRowColumns = []string{
	"id", "customer_id", "plan_id", "quantity", "amount", "cycles", "snap_to_nth_day", "bill_in",
	"contract_renewal", "subscription_status", "start_date", "period_start", "period_end", "renews_next", "trial_end",
	"renewed_last", "contract_period_start", "contract_period_end", "cancel_at_period_end", "timezone",
	"coupon_ids", "tax_rates", "tenant_id", "status", "created_at", "updated_at",
}

func subscriptionValues(id string, renewsNext time.Time) []driver.Value {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)
	return []driver.Value{
		id, "cus_1", "plan_monthly", "2", nil, 0, 0, "arrears",
		"auto", "active", created, start, end, renewsNext, nil,
		nil, nil, nil, false, "America/New_York",
		[]byte("{coupon_10pct}"), []byte(`[{"name":"VAT","percentage":"5"}]`),
		types.DefaultTenantID, "active", created, created,
	}
}

func (s *RepositorySuite) TestSubscriptionGetLoadsAddons() {
	renews := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE").
		WithArgs("sub_1", types.DefaultTenantID).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns).AddRow(subscriptionValues("sub_1", renews)...))
	s.mock.ExpectQuery("SELECT (.+) FROM subscription_addons WHERE").
		WithArgs(pq.Array([]string{"sub_1"})).
		WillReturnRows(sqlmock.NewRows(addonRowColumns).
			AddRow("addon_1", "sub_1", "", "item_seat", "3", nil))

	repo := NewSubscriptionRepository(s.db, s.log)
	sub, err := repo.Get(testutil.SetupContext(), "sub_1")
	s.Require().NoError(err)

	s.Equal(types.BillInArrears, sub.BillIn)
	s.Equal([]string{"coupon_10pct"}, sub.CouponIDs)
	s.Require().Len(sub.TaxRates, 1)
	s.True(decimal.NewFromInt(5).Equal(sub.TaxRates[0].Percentage))
	s.Nil(sub.Amount)
	s.Nil(sub.TrialEnd)
	s.Equal("America/New_York", sub.Location().String())
	s.Require().Len(sub.Addons, 1)
	s.Equal("item:item_seat", sub.Addons[0].Key())
}

var addonRowColumns = []string{"id", "subscription_id", "plan_id", "item_id", "quantity", "amount"}

func (s *RepositorySuite) TestSubscriptionListDue() {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(subscriptionRowColumns).
		AddRow(subscriptionValues("sub_1", due.Add(-time.Hour))...).
		AddRow(subscriptionValues("sub_2", due)...)

	// no tenant in ctx, the sweep spans every tenant
	s.mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE renews_next <= (.+) ORDER BY renews_next, id LIMIT").
		WithArgs(due, 50).
		WillReturnRows(rows)
	s.mock.ExpectQuery("FROM subscription_addons").
		WithArgs(pq.Array([]string{"sub_1", "sub_2"})).
		WillReturnRows(sqlmock.NewRows(addonRowColumns).
			AddRow("addon_1", "sub_2", "plan_quarterly", "", "1", "25"))

	repo := NewSubscriptionRepository(s.db, s.log)
	subs, err := repo.List(context.Background(), &subscription.Filter{RenewsBefore: &due, Limit: 50})
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Empty(subs[0].Addons)
	s.Require().Len(subs[1].Addons, 1)
	s.True(decimal.NewFromInt(25).Equal(*subs[1].Addons[0].Amount))
}

func (s *RepositorySuite) TestSubscriptionUpdateReplacesAddons() {
	sub := &subscription.Subscription{
		ID:       "sub_1",
		PlanID:   "plan_monthly",
		Quantity: decimal.NewFromInt(2),
		Addons: []*subscription.Addon{
			{ID: "addon_1", SubscriptionID: "sub_1", ItemID: "item_seat", Quantity: decimal.NewFromInt(4)},
		},
		BaseModel: types.BaseModel{TenantID: types.DefaultTenantID},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec("UPDATE subscriptions SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("DELETE FROM subscription_addons").
		WithArgs("sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO subscription_addons").
		WithArgs("addon_1", "sub_1", "", "item_seat", decimal.NewFromInt(4), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	repo := NewSubscriptionRepository(s.db, s.log)
	s.Require().NoError(repo.Update(testutil.SetupContext(), sub))
	s.False(sub.UpdatedAt.IsZero())
}

func (s *RepositorySuite) TestSubscriptionUpdateMissingRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("UPDATE subscriptions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	repo := NewSubscriptionRepository(s.db, s.log)
	err := repo.Update(testutil.SetupContext(), &subscription.Subscription{ID: "sub_gone"})
	s.True(ierr.IsNotFound(err))
}

var pendingColumns = []string{
	"id", "subscription_id", "customer_id", "name", "description", "quantity", "unit_cost", "currency",
	"period_start", "period_end", "prorated", "source_key", "invoice_id", "tenant_id", "status", "created_at", "updated_at",
}

func (s *RepositorySuite) TestLineItemListPending() {
	rows := sqlmock.NewRows(pendingColumns).
		AddRow("pli_1", "sub_1", "cus_1", "Monthly", "", "0.5", "100", "usd",
			nil, nil, true, "plan:plan_monthly", nil, types.DefaultTenantID, "active", created, created)

	s.mock.ExpectQuery("SELECT (.+) FROM pending_line_items WHERE invoice_id IS NULL AND tenant_id = (.+) ORDER BY created_at, id").
		WithArgs(types.DefaultTenantID, "sub_1").
		WillReturnRows(rows)

	repo := NewLineItemRepository(s.db, s.log)
	items, err := repo.ListPending(testutil.SetupContext(), &lineitem.Filter{SubscriptionID: "sub_1"})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.False(items[0].IsInvoiced())
	s.True(decimal.NewFromInt(50).Equal(items[0].Total()))
}

func (s *RepositorySuite) TestLineItemCreateManyEmpty() {
	repo := NewLineItemRepository(s.db, s.log)
	s.NoError(repo.CreateMany(testutil.SetupContext(), nil))
}

func (s *RepositorySuite) TestLineItemMarkInvoiced() {
	tests := []struct {
		name     string
		affected int64
		wantErr  bool
	}{
		{name: "all lines marked", affected: 2},
		{name: "line already invoiced", affected: 1, wantErr: true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.mock.ExpectExec("UPDATE pending_line_items SET invoice_id").
				WithArgs("inv_1", pq.Array([]string{"pli_1", "pli_2"})).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			repo := NewLineItemRepository(s.db, s.log)
			err := repo.MarkInvoiced(testutil.SetupContext(), []string{"pli_1", "pli_2"}, "inv_1")
			if tt.wantErr {
				s.True(ierr.IsNotFound(err))
				return
			}
			s.NoError(err)
		})
	}
}

func (s *RepositorySuite) TestLineItemHasPendingProration() {
	s.mock.ExpectQuery("SELECT EXISTS").
		WithArgs("sub_1", "item:item_seat", types.DefaultTenantID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewLineItemRepository(s.db, s.log)
	ok, err := repo.HasPendingProration(testutil.SetupContext(), "sub_1", "item:item_seat")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RepositorySuite) TestInvoiceCreateWritesLinesInOneTransaction() {
	inv := &invoice.Invoice{
		ID:         "inv_1",
		CustomerID: "cus_1",
		Currency:   "usd",
		LineItems: []*invoice.LineItem{
			{ID: "inl_1", Name: "Monthly", Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(100)},
			{ID: "inl_2", Name: "Seat", Quantity: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(10),
				PendingLineItemID: lo.ToPtr("pli_1")},
		},
	}
	inv.Recalculate()

	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO invoices").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO invoice_line_items").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO invoice_line_items").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	repo := NewInvoiceRepository(s.db, s.log)
	s.Require().NoError(repo.Create(testutil.SetupContext(), inv))
	s.Equal("inv_1", inv.LineItems[1].InvoiceID)
}

func (s *RepositorySuite) TestInvoiceCreateLineFailureRollsBack() {
	inv := &invoice.Invoice{
		ID:        "inv_1",
		Currency:  "usd",
		LineItems: []*invoice.LineItem{{ID: "inl_1"}},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO invoices").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO invoice_line_items").WillReturnError(&pq.Error{Code: uniqueViolation})
	s.mock.ExpectRollback()

	repo := NewInvoiceRepository(s.db, s.log)
	err := repo.Create(testutil.SetupContext(), inv)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestInvoiceGet() {
	s.mock.ExpectQuery("SELECT (.+) FROM invoices WHERE").
		WithArgs("inv_1", types.DefaultTenantID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "subscription_id", "currency", "period_start", "period_end", "bill_date",
			"discounts", "taxes", "subtotal", "total_discount", "total_tax", "total",
			"tenant_id", "status", "created_at", "updated_at",
		}).AddRow(
			"inv_1", "cus_1", "sub_1", "usd", nil, nil, nil,
			[]byte(`[{"coupon_id":"coupon_10pct","name":"10%","amount":"13"}]`), []byte(`null`),
			"130", "13", "0", "117",
			types.DefaultTenantID, "active", created, created,
		))
	s.mock.ExpectQuery("SELECT (.+) FROM invoice_line_items WHERE invoice_id").
		WithArgs("inv_1").
		WillReturnRows(sqlmock.NewRows(invoiceLineColumns).
			AddRow("inl_1", "inv_1", "Monthly", "", "1", "130", "130", nil, nil, false, nil))

	repo := NewInvoiceRepository(s.db, s.log)
	inv, err := repo.Get(testutil.SetupContext(), "inv_1")
	s.Require().NoError(err)
	s.Require().Len(inv.Discounts, 1)
	s.Empty(inv.Taxes)
	s.Require().Len(inv.LineItems, 1)
	s.True(decimal.NewFromInt(117).Equal(inv.Total))
}

var invoiceLineColumns = []string{
	"id", "invoice_id", "name", "description", "quantity", "unit_cost", "amount",
	"period_start", "period_end", "prorated", "pending_line_item_id",
}
