package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/relay"
)

// Recovery turns a panic into an INTERNAL_ERROR envelope. Streams that have
// already started are just cut off.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString(KeyRequestID)
				logger.Error("panic recovered",
					zap.String("request_id", requestID),
					zap.Any("panic", err),
					zap.Stack("stack"))

				SetOutcome(c, string(relay.CodeInternal), false)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(relay.CodeInternal.Status(), relay.Failure(requestID, relay.CodeInternal, ""))
			}
		}()
		c.Next()
	}
}
