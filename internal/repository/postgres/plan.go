package postgres

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billingcore/internal/domain/plan"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
)

const planColumns = `id, name, description, pricing_mode, unit_cost, tiers,
	interval_unit AS "interval.interval_unit", interval_count AS "interval.interval_count",
	currency, tenant_id, status, created_at, updated_at`

const itemColumns = `id, name, pricing_mode, unit_cost, currency, tenant_id, status, created_at, updated_at`

type planRepository struct {
	db  *postgres.DB
	log *logger.Logger
}

func NewPlanRepository(db *postgres.DB, log *logger.Logger) plan.Repository {
	return &planRepository{db: db, log: log}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	span := StartRepositorySpan(ctx, "plan", "create", map[string]interface{}{
		"plan_id": p.ID,
	})
	defer FinishSpan(span)

	query := `INSERT INTO plans (id, name, description, pricing_mode, unit_cost, tiers, interval_unit, interval_count,
		currency, tenant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.PricingMode, p.UnitCost, p.Tiers, p.Interval.Unit, p.Interval.Count,
		p.Currency, p.TenantID, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Plan %s already exists", p.ID).
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			WithReportableDetails(map[string]any{"plan_id": p.ID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	r.log.Debugw("getting plan", "plan_id", id)

	span := StartRepositorySpan(ctx, "plan", "get", map[string]interface{}{
		"plan_id": id,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = $%d", id)
	w.tenant(ctx)

	var p plan.Plan
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, `SELECT `+planColumns+` FROM plans`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Plan with ID %s was not found", id).
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			WithReportableDetails(map[string]any{"plan_id": id}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &p, nil
}

func (r *planRepository) CreateItem(ctx context.Context, item *plan.Item) error {
	span := StartRepositorySpan(ctx, "item", "create", map[string]interface{}{
		"item_id": item.ID,
	})
	defer FinishSpan(span)

	query := `INSERT INTO items (id, name, pricing_mode, unit_cost, currency, tenant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		item.ID, item.Name, item.PricingMode, item.UnitCost, item.Currency,
		item.TenantID, item.Status, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Item %s already exists", item.ID).
				WithReportableDetails(map[string]any{"item_id": item.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create item").
			WithReportableDetails(map[string]any{"item_id": item.ID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *planRepository) GetItem(ctx context.Context, id string) (*plan.Item, error) {
	r.log.Debugw("getting item", "item_id", id)

	span := StartRepositorySpan(ctx, "item", "get", map[string]interface{}{
		"item_id": id,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = $%d", id)
	w.tenant(ctx)

	var item plan.Item
	err := r.db.GetQuerier(ctx).GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Item with ID %s was not found", id).
				WithReportableDetails(map[string]any{"item_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get item").
			WithReportableDetails(map[string]any{"item_id": id}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &item, nil
}
