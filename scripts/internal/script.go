package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/flexprice/billingcore/internal/cache"
	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/integration/taxservice"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/metrics"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/flexprice/billingcore/internal/repository"
	"github.com/flexprice/billingcore/internal/sentry"
	"github.com/flexprice/billingcore/internal/service"
	"github.com/flexprice/billingcore/internal/types"
)

// script holds what every command needs, built without the fx graph
type script struct {
	log    *logger.Logger
	db     *postgres.DB
	params service.ServiceParams
}

func newScript() (*script, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	c := cache.NewCache(cfg, log)
	params := service.NewServiceParams(
		log,
		cfg,
		db,
		metrics.New(),
		sentry.NewSentryService(cfg, log),
		repository.NewSubscriptionRepository(db, log),
		repository.NewPlanRepository(db, log, c),
		repository.NewLineItemRepository(db, log),
		repository.NewCouponRepository(db, log, c),
		repository.NewInvoiceRepository(db, log),
		taxservice.NewAssessor(cfg, log),
	)

	return &script{log: log, db: db, params: params}, nil
}

// tenantContext scopes ctx to TENANT_ID, the default tenant when unset
func tenantContext() context.Context {
	tenantID := os.Getenv("TENANT_ID")
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}
	ctx := types.WithTenantID(context.Background(), tenantID)
	return types.WithRequestID(ctx, "")
}
