package cron

import (
	"net/http"
	"time"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/service"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler triggers renewals on demand, next to the scheduled sweep
type SubscriptionHandler struct {
	renewalService service.RenewalService
	logger         *logger.Logger
}

func NewSubscriptionHandler(renewalService service.RenewalService, logger *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		renewalService: renewalService,
		logger:         logger,
	}
}

// RenewDue runs a renewal sweep. The optional at query parameter, RFC3339,
// replaces the current time.
func (h *SubscriptionHandler) RenewDue(c *gin.Context) {
	now, err := sweepTime(c)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("starting renewal sweep", "at", now)
	result, err := h.renewalService.RenewDue(c.Request.Context(), now)
	if err != nil {
		h.logger.Errorw("failed to renew subscriptions", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed renewal sweep",
		"total_success", result.TotalSuccess,
		"total_failed", result.TotalFailed,
	)
	c.JSON(http.StatusOK, result)
}

// RenewSubscription renews a single subscription until it is no longer due
func (h *SubscriptionHandler) RenewSubscription(c *gin.Context) {
	now, err := sweepTime(c)
	if err != nil {
		c.Error(err)
		return
	}

	item, err := h.renewalService.Renew(c.Request.Context(), c.Param("id"), now)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func sweepTime(c *gin.Context) (time.Time, error) {
	at := c.Query("at")
	if at == "" {
		return time.Now().UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("at must be an RFC3339 timestamp").
			WithReportableDetails(map[string]any{"at": at}).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}
