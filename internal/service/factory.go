package service

import (
	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/domain/coupon"
	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/lineitem"
	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/domain/tax"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/metrics"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/flexprice/billingcore/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Metrics *metrics.Metrics
	Sentry  *sentry.Service

	// Locks serializes billing work on one subscription across services
	Locks *SubscriptionLocks

	// Repositories
	SubRepo      subscription.Repository
	PlanRepo     plan.Repository
	LineItemRepo lineitem.Repository
	CouponRepo   coupon.Repository
	InvoiceRepo  invoice.Repository

	// TaxAssessor computes tax previews, nil when no tax service is configured
	TaxAssessor tax.Assessor
}

// NewServiceParams creates a new ServiceParams, the fx constructor
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	metrics *metrics.Metrics,
	sentry *sentry.Service,
	subRepo subscription.Repository,
	planRepo plan.Repository,
	lineItemRepo lineitem.Repository,
	couponRepo coupon.Repository,
	invoiceRepo invoice.Repository,
	taxAssessor tax.Assessor,
) ServiceParams {
	return ServiceParams{
		Logger:       logger,
		Config:       config,
		DB:           postgres.NewSentryClient(db, sentry),
		Metrics:      metrics,
		Sentry:       sentry,
		Locks:        NewSubscriptionLocks(),
		SubRepo:      subRepo,
		PlanRepo:     planRepo,
		LineItemRepo: lineItemRepo,
		CouponRepo:   couponRepo,
		InvoiceRepo:  invoiceRepo,
		TaxAssessor:  taxAssessor,
	}
}
