package postgres

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/tax"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
)

const invoiceColumns = `id, customer_id, subscription_id, currency, period_start, period_end, bill_date,
	discounts, taxes, subtotal, total_discount, total_tax, total, tenant_id, status, created_at, updated_at`

const invoiceLineItemColumns = `id, invoice_id, name, description, quantity, unit_cost, amount,
	period_start, period_end, prorated, pending_line_item_id`

type invoiceRow struct {
	invoice.Invoice
	DiscountList jsonb[[]*invoice.Discount] `db:"discounts"`
	TaxList      jsonb[[]tax.Line]          `db:"taxes"`
}

type invoiceRepository struct {
	db  *postgres.DB
	log *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, log: log}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.log.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"customer_id", inv.CustomerID,
		"total", inv.Total,
	)

	span := StartRepositorySpan(ctx, "invoice", "create", map[string]interface{}{
		"invoice_id": inv.ID,
	})
	defer FinishSpan(span)

	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	lineQuery := `INSERT INTO invoice_line_items (` + invoiceLineItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
			inv.ID, inv.CustomerID, inv.SubscriptionID, inv.Currency, inv.PeriodStart, inv.PeriodEnd, inv.BillDate,
			jsonb[[]*invoice.Discount]{V: inv.Discounts}, jsonb[[]tax.Line]{V: inv.Taxes},
			inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.Total,
			inv.TenantID, inv.Status, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for _, li := range inv.LineItems {
			li.InvoiceID = inv.ID
			_, err := r.db.GetQuerier(ctx).ExecContext(ctx, lineQuery,
				li.ID, li.InvoiceID, li.Name, li.Description, li.Quantity, li.UnitCost, li.Amount,
				li.PeriodStart, li.PeriodEnd, li.Prorated, li.PendingLineItemID,
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
				WithHintf("Invoice %s already exists", inv.ID).
				WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	r.log.Debugw("getting invoice", "invoice_id", id)

	span := StartRepositorySpan(ctx, "invoice", "get", map[string]interface{}{
		"invoice_id": id,
	})
	defer FinishSpan(span)

	w := &where{}
	w.add("id = $%d", id)
	w.tenant(ctx)

	var row invoiceRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT `+invoiceColumns+` FROM invoices`+w.String(), w.args...)
	if err != nil {
		SetSpanError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrDatabase)
	}

	inv := row.Invoice
	inv.Discounts = row.DiscountList.V
	inv.Taxes = row.TaxList.V
	inv.LineItems = make([]*invoice.LineItem, 0)

	err = r.db.GetQuerier(ctx).SelectContext(ctx, &inv.LineItems,
		`SELECT `+invoiceLineItemColumns+` FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, id,
	)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice line items").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &inv, nil
}
