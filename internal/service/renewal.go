package service

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/billingcore/internal/domain/invoice"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/flexprice/billingcore/internal/metrics"
	"github.com/flexprice/billingcore/internal/period"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// maxCatchUpPeriods bounds how many periods one renewal bills for a
// subscription that fell behind
const maxCatchUpPeriods = 36

type RenewalService interface {
	// RenewDue renews every subscription whose next renewal is at or before now
	RenewDue(ctx context.Context, now time.Time) (*RenewalResult, error)

	// Renew bills and advances one subscription until it is no longer due
	Renew(ctx context.Context, subscriptionID string, now time.Time) (*RenewalItem, error)
}

type RenewalResult struct {
	StartAt      time.Time      `json:"start_at"`
	Items        []*RenewalItem `json:"items"`
	TotalSuccess int            `json:"total_success"`
	TotalFailed  int            `json:"total_failed"`
}

// RenewalItem reports what happened to one subscription
type RenewalItem struct {
	SubscriptionID string                   `json:"subscription_id"`
	InvoiceIDs     []string                 `json:"invoice_ids"`
	Periods        int                      `json:"periods"`
	PeriodStart    time.Time                `json:"period_start"`
	PeriodEnd      time.Time                `json:"period_end"`
	Status         types.SubscriptionStatus `json:"status"`
	Success        bool                     `json:"success"`
	Error          string                   `json:"error,omitempty"`
}

type renewalService struct {
	ServiceParams
	invoiceService InvoiceService
}

func NewRenewalService(params ServiceParams) RenewalService {
	return &renewalService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
	}
}

func (s *renewalService) RenewDue(ctx context.Context, now time.Time) (*RenewalResult, error) {
	span, ctx := s.Sentry.StartTransaction(ctx, "renewal.sweep")
	if span != nil {
		defer span.Finish()
	}

	start := time.Now()
	defer func() {
		s.Metrics.ObserveSweep(time.Since(start).Seconds())
	}()

	subs, err := s.SubRepo.List(ctx, &subscription.Filter{RenewsBefore: lo.ToPtr(now)})
	if err != nil {
		s.Logger.Errorw("failed to list subscriptions due for renewal", "error", err)
		return nil, err
	}

	subs = lo.Filter(subs, func(sub *subscription.Subscription, _ int) bool {
		return !sub.SubscriptionStatus.IsTerminal()
	})

	s.Logger.Infow("starting renewal sweep",
		"now", now,
		"due", len(subs),
	)

	result := &RenewalResult{
		StartAt: now,
		Items:   make([]*RenewalItem, 0, len(subs)),
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.concurrency())
	for _, sub := range subs {
		sub := sub
		p.Go(func() {
			subCtx := types.WithTenantID(ctx, sub.TenantID)
			item, err := s.Renew(subCtx, sub.ID, now)
			if item == nil {
				item = &RenewalItem{SubscriptionID: sub.ID}
			}
			if err != nil {
				item.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			result.Items = append(result.Items, item)
			if item.Success {
				result.TotalSuccess++
			} else {
				result.TotalFailed++
			}
		})
	}
	p.Wait()

	s.Logger.Infow("finished renewal sweep",
		"now", now,
		"success", result.TotalSuccess,
		"failed", result.TotalFailed,
	)
	return result, nil
}

func (s *renewalService) concurrency() int {
	if s.Config == nil || s.Config.Worker.Concurrency < 1 {
		return 1
	}
	return s.Config.Worker.Concurrency
}

func (s *renewalService) Renew(ctx context.Context, subscriptionID string, now time.Time) (*RenewalItem, error) {
	unlock := s.Locks.Lock(subscriptionID)
	defer unlock()

	item := &RenewalItem{
		SubscriptionID: subscriptionID,
		InvoiceIDs:     make([]string, 0),
	}

	err := s.renew(ctx, subscriptionID, now, item)
	if err != nil {
		s.Metrics.RenewalProcessed(metrics.ResultFailed)
		s.Sentry.CaptureWithTags(ctx, err, map[string]string{
			"subscription_id": subscriptionID,
			"operation":       "renewal",
		})
		s.Logger.Errorw("failed to renew subscription",
			"subscription_id", subscriptionID,
			"periods_renewed", item.Periods,
			"error", err,
		)
		return item, err
	}

	item.Success = true
	return item, nil
}

// renew re-reads the subscription under the lock so that a renewal
// finished by another worker is not repeated
func (s *renewalService) renew(ctx context.Context, subscriptionID string, now time.Time, item *RenewalItem) error {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(ctx, s.PlanRepo, sub)
	if err != nil {
		return err
	}
	pl, err := catalog.Plan(sub.PlanID)
	if err != nil {
		return err
	}

	for item.Periods < maxCatchUpPeriods && isDue(sub, now) {
		periods, err := period.NewBillingPeriods(sub, pl)
		if err != nil {
			return err
		}

		var inv *invoice.Invoice
		if p := periods.PeriodToInvoice(); p != nil {
			inv, err = s.invoiceService.SubscriptionInvoice(ctx, sub, *p, InvoiceOptions{IncludePending: true})
			if err != nil {
				return err
			}
		}

		err = s.DB.WithTx(ctx, func(ctx context.Context) error {
			if inv != nil {
				if err := s.invoiceService.Finalize(ctx, inv); err != nil {
					return err
				}
			}
			periods.Advance(now, inv != nil)
			return s.SubRepo.Update(ctx, sub)
		})
		if err != nil {
			return err
		}

		item.Periods++
		item.PeriodStart = sub.PeriodStart
		item.PeriodEnd = sub.PeriodEnd
		item.Status = sub.SubscriptionStatus

		result := metrics.ResultAdvanced
		if inv != nil {
			result = metrics.ResultInvoiced
			item.InvoiceIDs = append(item.InvoiceIDs, inv.ID)
		}
		s.Metrics.RenewalProcessed(result)

		s.Logger.Infow("renewed subscription",
			"subscription_id", sub.ID,
			"customer_id", sub.CustomerID,
			"invoice_id", invoiceID(inv),
			"period_start", sub.PeriodStart,
			"period_end", sub.PeriodEnd,
			"renews_next", sub.RenewsNext,
			"status", sub.SubscriptionStatus,
		)
	}

	return nil
}

func invoiceID(inv *invoice.Invoice) string {
	if inv == nil {
		return ""
	}
	return inv.ID
}

func isDue(sub *subscription.Subscription, now time.Time) bool {
	if sub.SubscriptionStatus.IsTerminal() || sub.RenewsNext.IsZero() {
		return false
	}
	return !sub.RenewsNext.After(now)
}
