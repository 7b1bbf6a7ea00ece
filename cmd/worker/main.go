package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/flexprice/billingcore/internal/api"
	"github.com/flexprice/billingcore/internal/api/cron"
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
	"github.com/flexprice/billingcore/internal/validator"
	"github.com/flexprice/billingcore/internal/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	once := flag.Bool("once", false, "Run a single renewal sweep and exit")
	flag.Parse()

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Metrics
			metrics.New,

			// Tax service, nil when disabled
			taxservice.NewAssessor,
		),
		sentry.Module(),
		postgres.Module(),
		cache.Module(),
		repository.Module(),
		fx.Invoke(validator.NewValidator),
	)

	// Services
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewRenewalService,
		),
	)

	if *once {
		opts = append(opts, fx.Invoke(runOnce))
	} else {
		opts = append(opts,
			fx.Provide(
				worker.NewScheduler,
				cron.NewSubscriptionHandler,
				provideHandlers,
				api.NewRouter,
			),
			fx.Invoke(startWorker),
		)
	}

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(subscription *cron.SubscriptionHandler) api.Handlers {
	return api.Handlers{CronSubscription: subscription}
}

func runOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, renewals service.RenewalService, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx := types.WithRequestID(context.Background(), "")
				result, err := renewals.RenewDue(ctx, time.Now().UTC())
				if err != nil {
					log.Errorw("renewal sweep failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				log.Infow("renewal sweep finished",
					"total_success", result.TotalSuccess,
					"total_failed", result.TotalFailed,
				)
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func startWorker(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	scheduler *worker.Scheduler,
	router *gin.Engine,
	log *logger.Logger,
) {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Worker.MetricsAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting billing worker",
				"renewal_schedule", cfg.Worker.RenewalSchedule,
				"address", cfg.Worker.MetricsAddress,
			)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalw("http server failed", "error", err)
				}
			}()
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down billing worker")
			if err := scheduler.Stop(ctx); err != nil {
				log.Errorw("renewal sweep did not finish before shutdown", "error", err)
			}
			return srv.Shutdown(ctx)
		},
	})
}
