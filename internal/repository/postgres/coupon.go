package postgres

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billingcore/internal/domain/coupon"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const couponColumns = `id, name, type, cadence, amount_off, percentage_off, currency, tenant_id, status, created_at, updated_at`

type couponRepository struct {
	db  *postgres.DB
	log *logger.Logger
}

func NewCouponRepository(db *postgres.DB, log *logger.Logger) coupon.Repository {
	return &couponRepository{db: db, log: log}
}

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	span := StartRepositorySpan(ctx, "coupon", "create", map[string]interface{}{
		"coupon_id": c.ID,
	})
	defer FinishSpan(span)

	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		c.ID, c.Name, c.Type, c.Cadence, c.AmountOff, c.PercentageOff, c.Currency,
		c.TenantID, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Coupon %s already exists", c.ID).
				WithReportableDetails(map[string]any{"coupon_id": c.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create coupon").
			WithReportableDetails(map[string]any{"coupon_id": c.ID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	span := StartRepositorySpan(ctx, "coupon", "get", map[string]interface{}{
		"coupon_id": id,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = $%d", id)
	w.tenant(ctx)

	var c coupon.Coupon
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, `SELECT `+couponColumns+` FROM coupons`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Coupon with ID %s was not found", id).
				WithReportableDetails(map[string]any{"coupon_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get coupon").
			WithReportableDetails(map[string]any{"coupon_id": id}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &c, nil
}

// GetMany returns the coupons in the order of ids. A missing coupon fails
// the whole lookup.
func (r *couponRepository) GetMany(ctx context.Context, ids []string) ([]*coupon.Coupon, error) {
	if len(ids) == 0 {
		return []*coupon.Coupon{}, nil
	}

	span := StartRepositorySpan(ctx, "coupon", "get_many", map[string]interface{}{
		"coupon_ids": ids,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = ANY($%d)", pq.Array(ids))
	w.tenant(ctx)

	var coupons []*coupon.Coupon
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &coupons, `SELECT `+couponColumns+` FROM coupons`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get coupons").
			WithReportableDetails(map[string]any{"coupon_ids": ids}).
			Mark(ierr.ErrDatabase)
	}

	byID := lo.KeyBy(coupons, func(c *coupon.Coupon) string { return c.ID })
	result := make([]*coupon.Coupon, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, ierr.NewErrorf("coupon %s not found", id).
				WithHintf("Coupon with ID %s was not found", id).
				WithReportableDetails(map[string]any{"coupon_id": id}).
				Mark(ierr.ErrNotFound)
		}
		result = append(result, c)
	}

	SetSpanSuccess(span)
	return result, nil
}
