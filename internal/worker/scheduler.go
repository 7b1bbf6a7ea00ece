package worker

import (
	"context"
	"time"

	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/sentry"
	"github.com/flexprice/billingcore/internal/service"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/robfig/cron/v3"
)

// parser accepts standard five field specs with an optional leading seconds field
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs renewal sweeps on the configured cron schedule. A sweep
// still running when the next one is due makes the next one skip.
type Scheduler struct {
	cron     *cron.Cron
	renewals service.RenewalService
	sentry   *sentry.Service
	logger   *logger.Logger
	now      func() time.Time
}

func NewScheduler(cfg *config.Configuration, renewals service.RenewalService, sentry *sentry.Service, log *logger.Logger) (*Scheduler, error) {
	cronLog := cronLogger{log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		renewals: renewals,
		sentry:   sentry,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(cfg.Worker.RenewalSchedule, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep renews everything due now. Errors are logged and reported, the
// next tick tries again.
func (s *Scheduler) Sweep() {
	ctx := types.WithRequestID(context.Background(), "")
	now := s.now()

	s.logger.Infow("starting renewal sweep", "at", now, "request_id", types.GetRequestID(ctx))
	result, err := s.renewals.RenewDue(ctx, now)
	if err != nil {
		s.logger.Errorw("renewal sweep failed", "error", err)
		s.sentry.CaptureWithTags(ctx, err, map[string]string{"job": "renewal_sweep"})
		return
	}

	s.logger.Infow("completed renewal sweep",
		"subscriptions", len(result.Items),
		"total_success", result.TotalSuccess,
		"total_failed", result.TotalFailed,
	)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sweep, or ctx, to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's logs to the sugared logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
