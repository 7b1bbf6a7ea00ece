package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/types"
)

// TracedQuerier logs every statement with its duration, the transaction it
// ran in and the tenant and request of ctx. Failures other than
// sql.ErrNoRows are logged as errors.
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
		txID:    txID,
	}
}

// trace starts timing query and returns the func that logs its outcome
func (tq *TracedQuerier) trace(ctx context.Context, query string, args interface{}) func(error) {
	start := time.Now()
	return func(err error) {
		fields := []interface{}{
			"duration_ms", time.Since(start).Milliseconds(),
			"query", strings.Join(strings.Fields(query), " "),
			"params", args,
		}
		if tq.txID != "" {
			fields = append(fields, "tx_id", tq.txID)
		}
		if tenantID := types.GetTenantID(ctx); tenantID != "" {
			fields = append(fields, "tenant_id", tenantID)
		}
		if requestID := types.GetRequestID(ctx); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}

		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			tq.logger.Errorw("database query failed", append(fields, "error", err)...)
			return
		}
		tq.logger.Debugw("database query completed", fields...)
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	done := tq.trace(ctx, query, args)
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	done := tq.trace(ctx, query, arg)
	result, err := tq.Querier.NamedExecContext(ctx, query, arg)
	done(err)
	return result, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(ctx, query, args)
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	done(err)
	return err
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := tq.trace(ctx, query, args)
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	done(err)
	return err
}
