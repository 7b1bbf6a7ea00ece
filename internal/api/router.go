package api

import (
	"net/http"

	"github.com/flexprice/billingcore/internal/api/cron"
	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/metrics"
	"github.com/flexprice/billingcore/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	CronSubscription *cron.SubscriptionHandler
}

// NewRouter builds the worker's operational endpoints
func NewRouter(cfg *config.Configuration, handlers Handlers, m *metrics.Metrics, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestIDMiddleware)
	router.Use(middleware.SentryMiddleware(cfg)...)
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	cronGroup := router.Group("/cron")
	{
		subscriptions := cronGroup.Group("/subscriptions")
		subscriptions.POST("/renew", handlers.CronSubscription.RenewDue)
		subscriptions.POST("/:id/renew", handlers.CronSubscription.RenewSubscription)
	}

	return router
}
