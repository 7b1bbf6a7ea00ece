package repository

import (
	"github.com/flexprice/billingcore/internal/cache"
	"github.com/flexprice/billingcore/internal/domain/coupon"
	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	cachedRepo "github.com/flexprice/billingcore/internal/repository/cached"
	postgresRepo "github.com/flexprice/billingcore/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides every repository the billing services need
func Module() fx.Option {
	return fx.Provide(
		NewSubscriptionRepository,
		NewPlanRepository,
		NewLineItemRepository,
		NewCouponRepository,
		NewInvoiceRepository,
	)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

// NewPlanRepository reads the catalog through the cache
func NewPlanRepository(db *postgres.DB, logger *logger.Logger, c cache.Cache) plan.Repository {
	return cachedRepo.NewPlanRepository(postgresRepo.NewPlanRepository(db, logger), c)
}

func NewLineItemRepository(db *postgres.DB, logger *logger.Logger) lineitem.Repository {
	return postgresRepo.NewLineItemRepository(db, logger)
}

// NewCouponRepository reads coupons through the cache
func NewCouponRepository(db *postgres.DB, logger *logger.Logger, c cache.Cache) coupon.Repository {
	return cachedRepo.NewCouponRepository(postgresRepo.NewCouponRepository(db, logger), c)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}
