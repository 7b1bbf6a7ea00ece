package middleware

import (
	"github.com/flexprice/billingcore/internal/types"
	"github.com/gin-gonic/gin"
)

const headerRequestID = "X-Request-ID"

// RequestIDMiddleware puts the caller's request id, or a new one, on the
// request context and echoes it back
func RequestIDMiddleware(c *gin.Context) {
	ctx := types.WithRequestID(c.Request.Context(), c.GetHeader(headerRequestID))
	c.Request = c.Request.WithContext(ctx)
	c.Header(headerRequestID, types.GetRequestID(ctx))
	c.Next()
}
