package service

import (
	"context"
	"time"

	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/proration"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/period"
)

type ProrationService interface {
	// Preview computes the proration of a change without storing anything
	Preview(ctx context.Context, req SubscriptionChangeRequest) (*ProrationResponse, error)

	// Apply stores the proration lines as pending line items and persists the
	// changed subscription, resetting its period when the cycle changed
	Apply(ctx context.Context, req SubscriptionChangeRequest) (*ProrationResponse, error)
}

type prorationService struct {
	ServiceParams
}

func NewProrationService(params ServiceParams) ProrationService {
	return &prorationService{
		ServiceParams: params,
	}
}

// change is a computed proration together with what it was computed from
type change struct {
	proration *proration.Proration
	before    *subscription.Subscription
	after     *subscription.Subscription
	afterPlan *plan.Plan
	catalog   *plan.Catalog
	date      time.Time
}

func (s *prorationService) Preview(ctx context.Context, req SubscriptionChangeRequest) (*ProrationResponse, error) {
	c, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	s.Logger.Debugw("previewed proration",
		"subscription_id", req.SubscriptionID,
		"lines", len(c.proration.Lines()),
		"total", c.proration.Total().String(),
	)
	return c.response(false), nil
}

func (s *prorationService) Apply(ctx context.Context, req SubscriptionChangeRequest) (*ProrationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.Locks.Lock(req.SubscriptionID)
	defer unlock()

	c, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	var applied bool
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		applied, err = c.proration.Apply(ctx, s.LineItemRepo)
		if err != nil {
			return err
		}

		if c.proration.Diff().ChangedCycle {
			periods, err := period.NewBillingPeriods(c.after, c.afterPlan)
			if err != nil {
				return err
			}
			periods.ResetAfterChangedDuration(c.date)
		}

		return s.SubRepo.Update(ctx, c.after)
	})
	if err != nil {
		s.Logger.Errorw("failed to apply proration",
			"subscription_id", req.SubscriptionID,
			"error", err,
		)
		return nil, err
	}

	s.Metrics.ProrationComputed(applied)
	s.Logger.Infow("applied subscription change",
		"subscription_id", c.after.ID,
		"customer_id", c.after.CustomerID,
		"changed_cycle", c.proration.Diff().ChangedCycle,
		"prorated", applied,
		"total", c.proration.Total().String(),
	)

	return c.response(applied), nil
}

func (s *prorationService) compute(ctx context.Context, req SubscriptionChangeRequest) (*change, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	before, err := s.SubRepo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	date := time.Now()
	if req.ProrationDate != nil {
		date = *req.ProrationDate
	}

	return computeChange(ctx, s.PlanRepo, before, req, date.In(before.Location()))
}

// computeChange prorates req against before at date
func computeChange(ctx context.Context, repo plan.Repository, before *subscription.Subscription, req SubscriptionChangeRequest, date time.Time) (*change, error) {
	after := req.applyTo(before)

	catalog, err := loadCatalog(ctx, repo, before, after)
	if err != nil {
		return nil, err
	}

	beforePlan, err := catalog.Plan(before.PlanID)
	if err != nil {
		return nil, err
	}
	afterPlan, err := catalog.Plan(after.PlanID)
	if err != nil {
		return nil, err
	}

	p, err := proration.New(
		proration.Snapshot{Subscription: before, Plan: beforePlan},
		proration.Snapshot{Subscription: after, Plan: afterPlan},
		date,
		catalog,
	)
	if err != nil {
		return nil, err
	}

	return &change{
		proration: p,
		before:    before,
		after:     after,
		afterPlan: afterPlan,
		catalog:   catalog,
		date:      date,
	}, nil
}

func (c *change) response(applied bool) *ProrationResponse {
	return &ProrationResponse{
		SubscriptionID:   c.after.ID,
		ProrationDate:    c.date,
		ChangedCycle:     c.proration.Diff().ChangedCycle,
		PercentRemaining: c.proration.Percent(),
		Lines:            c.proration.Lines(),
		Total:            c.proration.Total(),
		Currency:         c.afterPlan.Currency,
		Applied:          applied,
		Subscription:     c.after,
	}
}
