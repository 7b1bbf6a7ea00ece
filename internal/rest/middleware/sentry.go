package middleware

import (
	"time"

	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/types"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware reports panics in the worker's handlers to sentry and
// tags the request's hub with its request id. It must run after
// RequestIDMiddleware. It is a pass-through when sentry is disabled.
func SentryMiddleware(cfg *config.Configuration) []gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return nil
	}

	return []gin.HandlerFunc{
		sentrygin.New(sentrygin.Options{
			Repanic: true,
			Timeout: 2 * time.Second,
		}),
		func(c *gin.Context) {
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.Scope().SetTag("request_id", types.GetRequestID(c.Request.Context()))
			}
			c.Next()
		},
	}
}
