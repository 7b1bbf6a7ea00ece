package postgres

import (
	"context"

	"github.com/flexprice/billingcore/internal/domain/lineitem"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/lib/pq"
)

const pendingLineItemColumns = `id, subscription_id, customer_id, name, description, quantity, unit_cost, currency,
	period_start, period_end, prorated, source_key, invoice_id, tenant_id, status, created_at, updated_at`

type lineItemRepository struct {
	db  *postgres.DB
	log *logger.Logger
}

func NewLineItemRepository(db *postgres.DB, log *logger.Logger) lineitem.Repository {
	return &lineItemRepository{db: db, log: log}
}

func (r *lineItemRepository) CreateMany(ctx context.Context, items []*lineitem.PendingLineItem) error {
	if len(items) == 0 {
		return nil
	}

	r.log.Debugw("creating pending line items", "count", len(items))

	span := StartRepositorySpan(ctx, "pending_line_item", "create_many", map[string]interface{}{
		"count": len(items),
	})
	defer FinishSpan(span)

	query := `INSERT INTO pending_line_items (` + pendingLineItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
				item.ID, item.SubscriptionID, item.CustomerID, item.Name, item.Description,
				item.Quantity, item.UnitCost, item.Currency, item.PeriodStart, item.PeriodEnd,
				item.Prorated, item.SourceKey, item.InvoiceID,
				item.TenantID, item.Status, item.CreatedAt, item.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Pending line item already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create pending line items").
			WithReportableDetails(map[string]any{"count": len(items)}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

// ListPending returns lines not yet consumed by an invoice, oldest first
func (r *lineItemRepository) ListPending(ctx context.Context, filter *lineitem.Filter) ([]*lineitem.PendingLineItem, error) {
	span := StartRepositorySpan(ctx, "pending_line_item", "list_pending", nil)
	defer FinishSpan(span)

	w := &where{conds: []string{"invoice_id IS NULL"}}
	w.tenant(ctx)
	if filter != nil {
		if filter.SubscriptionID != "" {
			w.add("subscription_id = $%d", filter.SubscriptionID)
		}
		if filter.CustomerID != "" {
			w.add("customer_id = $%d", filter.CustomerID)
		}
	}

	items := make([]*lineitem.PendingLineItem, 0)
	query := `SELECT ` + pendingLineItemColumns + ` FROM pending_line_items` + w.String() + ` ORDER BY created_at, id`
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &items, query, w.args...); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list pending line items").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return items, nil
}

func (r *lineItemRepository) MarkInvoiced(ctx context.Context, ids []string, invoiceID string) error {
	if len(ids) == 0 {
		return nil
	}

	r.log.Debugw("marking pending line items invoiced", "invoice_id", invoiceID, "count", len(ids))

	span := StartRepositorySpan(ctx, "pending_line_item", "mark_invoiced", map[string]interface{}{
		"invoice_id": invoiceID,
	})
	defer FinishSpan(span)

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE pending_line_items SET invoice_id = $1, updated_at = now() WHERE id = ANY($2) AND invoice_id IS NULL`,
		invoiceID, pq.Array(ids),
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to mark pending line items invoiced").
			WithReportableDetails(map[string]any{"invoice_id": invoiceID}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to mark pending line items invoiced").
			Mark(ierr.ErrDatabase)
	}
	if int(rows) != len(ids) {
		err := ierr.NewErrorf("marked %d of %d pending line items", rows, len(ids)).
			WithHint("Some pending line items were missing or already invoiced").
			WithReportableDetails(map[string]any{
				"invoice_id": invoiceID,
				"ids":        ids,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *lineItemRepository) HasPendingProration(ctx context.Context, subscriptionID, sourceKey string) (bool, error) {
	span := StartRepositorySpan(ctx, "pending_line_item", "has_pending_proration", map[string]interface{}{
		"subscription_id": subscriptionID,
		"source_key":      sourceKey,
	})
	defer FinishSpan(span)

	w := &where{conds: []string{"invoice_id IS NULL", "prorated"}}
	w.add("subscription_id = $%d", subscriptionID)
	w.add("source_key = $%d", sourceKey)
	w.tenant(ctx)

	var exists bool
	err := r.db.GetQuerier(ctx).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM pending_line_items`+w.String()+`)`, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Failed to look up pending proration").
			WithReportableDetails(map[string]any{"subscription_id": subscriptionID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return exists, nil
}
