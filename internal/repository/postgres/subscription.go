package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const subscriptionColumns = `id, customer_id, plan_id, quantity, amount, cycles, snap_to_nth_day, bill_in,
	contract_renewal, subscription_status, start_date, period_start, period_end, renews_next, trial_end,
	renewed_last, contract_period_start, contract_period_end, cancel_at_period_end, timezone,
	coupon_ids, tax_rates, tenant_id, status, created_at, updated_at`

const addonColumns = `id, subscription_id, plan_id, item_id, quantity, amount`

// subscriptionRow carries the list columns the domain struct does not map
type subscriptionRow struct {
	subscription.Subscription
	CouponIDList pq.StringArray                  `db:"coupon_ids"`
	TaxRateList  jsonb[[]subscription.TaxRate] `db:"tax_rates"`
}

func (row *subscriptionRow) toDomain() *subscription.Subscription {
	sub := row.Subscription
	sub.CouponIDs = []string(row.CouponIDList)
	sub.TaxRates = row.TaxRateList.V
	sub.Addons = make([]*subscription.Addon, 0)
	return &sub
}

type subscriptionRepository struct {
	db  *postgres.DB
	log *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, log: log}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	r.log.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"plan_id", sub.PlanID,
	)

	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"subscription_id": sub.ID,
	})
	defer FinishSpan(span)

	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26)`

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
			sub.ID, sub.CustomerID, sub.PlanID, sub.Quantity, sub.Amount, sub.Cycles, sub.SnapToNthDay, sub.BillIn,
			sub.ContractRenewal, sub.SubscriptionStatus, sub.StartDate, sub.PeriodStart, sub.PeriodEnd, sub.RenewsNext, sub.TrialEnd,
			sub.RenewedLast, sub.ContractPeriodStart, sub.ContractPeriodEnd, sub.CancelAtPeriodEnd, sub.Timezone,
			pq.StringArray(sub.CouponIDs), jsonb[[]subscription.TaxRate]{V: sub.TaxRates},
			sub.TenantID, sub.Status, sub.CreatedAt, sub.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return r.insertAddons(ctx, sub)
	})
	if err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Subscription %s already exists", sub.ID).
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) insertAddons(ctx context.Context, sub *subscription.Subscription) error {
	query := `INSERT INTO subscription_addons (` + addonColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, addon := range sub.Addons {
		_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
			addon.ID, sub.ID, addon.PlanID, addon.ItemID, addon.Quantity, addon.Amount,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	r.log.Debugw("getting subscription", "subscription_id", id)

	span := StartRepositorySpan(ctx, "subscription", "get", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = $%d", id)
	w.tenant(ctx)

	var row subscriptionRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT `+subscriptionColumns+` FROM subscriptions`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Subscription with ID %s was not found", id).
				WithReportableDetails(map[string]any{"subscription_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrDatabase)
	}

	sub := row.toDomain()
	if err := r.loadAddons(ctx, sub); err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	SetSpanSuccess(span)
	return sub, nil
}

// Update persists what billing changes on a subscription. Addons are
// replaced as a whole.
func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	r.log.Debugw("updating subscription",
		"subscription_id", sub.ID,
		"period_start", sub.PeriodStart,
		"period_end", sub.PeriodEnd,
		"renews_next", sub.RenewsNext,
	)

	span := StartRepositorySpan(ctx, "subscription", "update", map[string]interface{}{
		"subscription_id": sub.ID,
	})
	defer FinishSpan(span)

	sub.UpdatedAt = time.Now().UTC()

	query := `UPDATE subscriptions SET plan_id = $1, quantity = $2, amount = $3, subscription_status = $4,
		period_start = $5, period_end = $6, renews_next = $7, trial_end = $8, renewed_last = $9,
		contract_period_start = $10, contract_period_end = $11, cancel_at_period_end = $12,
		coupon_ids = $13, tax_rates = $14, updated_at = $15
		WHERE id = $16 AND tenant_id = $17`

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
			sub.PlanID, sub.Quantity, sub.Amount, sub.SubscriptionStatus,
			sub.PeriodStart, sub.PeriodEnd, sub.RenewsNext, sub.TrialEnd, sub.RenewedLast,
			sub.ContractPeriodStart, sub.ContractPeriodEnd, sub.CancelAtPeriodEnd,
			pq.StringArray(sub.CouponIDs), jsonb[[]subscription.TaxRate]{V: sub.TaxRates}, sub.UpdatedAt,
			sub.ID, sub.TenantID,
		)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update subscription").
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrDatabase)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update subscription").
				Mark(ierr.ErrDatabase)
		}
		if rows == 0 {
			return ierr.NewErrorf("subscription %s not found", sub.ID).
				WithHintf("Subscription with ID %s was not found", sub.ID).
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrNotFound)
		}

		_, err = r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM subscription_addons WHERE subscription_id = $1`, sub.ID)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to replace subscription addons").
				Mark(ierr.ErrDatabase)
		}
		if err := r.insertAddons(ctx, sub); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to replace subscription addons").
				Mark(ierr.ErrDatabase)
		}
		return nil
	})
	if err != nil {
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "list", nil)
	defer FinishSpan(span)

	w := &where{}
	w.tenant(ctx)
	if filter != nil {
		if filter.RenewsBefore != nil {
			w.add("renews_next <= $%d", *filter.RenewsBefore)
		}
		if filter.CustomerID != "" {
			w.add("customer_id = $%d", filter.CustomerID)
		}
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + w.String() + ` ORDER BY renews_next, id`
	args := w.args
	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []*subscriptionRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	subs := lo.Map(rows, func(row *subscriptionRow, _ int) *subscription.Subscription {
		return row.toDomain()
	})
	if err := r.loadAddons(ctx, subs...); err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	SetSpanSuccess(span)
	return subs, nil
}

func (r *subscriptionRepository) loadAddons(ctx context.Context, subs ...*subscription.Subscription) error {
	if len(subs) == 0 {
		return nil
	}

	ids := lo.Map(subs, func(s *subscription.Subscription, _ int) string { return s.ID })

	var addons []*subscription.Addon
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &addons,
		`SELECT `+addonColumns+` FROM subscription_addons WHERE subscription_id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load subscription addons").
			WithReportableDetails(map[string]any{"subscription_ids": ids}).
			Mark(ierr.ErrDatabase)
	}

	bySub := lo.GroupBy(addons, func(a *subscription.Addon) string { return a.SubscriptionID })
	for _, sub := range subs {
		if list, ok := bySub[sub.ID]; ok {
			sub.Addons = list
		}
	}
	return nil
}
