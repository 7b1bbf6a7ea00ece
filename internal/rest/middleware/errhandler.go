package middleware

import (
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached to the context
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.Errorw("request failed",
				"path", c.FullPath(),
				"status", status,
				"error", err,
			)
		}

		resp := ierr.NewErrorResponse(err)
		// internal messages stay in the logs
		resp.Error.InternalError = ""
		c.JSON(status, resp)
	}
}
