package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/ratelimit"
	"github.com/akio-byte/navaltutka/internal/relay"
)

// RateLimitObserver is told about rejections and the limiter's key count.
type RateLimitObserver interface {
	IncrementRateLimited()
	SetLimiterKeys(n int)
}

type sizer interface {
	Size() int
}

// RateLimit admits each request through limiter, keyed by client key. A
// rejected request never reaches the handler.
func RateLimit(limiter ratelimit.Limiter, obs RateLimitObserver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := GetClientKey(c)
		requestID := GetRequestID(c)

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("request_id", requestID), zap.Error(err))
			SetOutcome(c, string(relay.CodeInternal), false)
			c.AbortWithStatusJSON(relay.CodeInternal.Status(), relay.Failure(requestID, relay.CodeInternal, ""))
			return
		}

		if s, ok := limiter.(sizer); ok && obs != nil {
			obs.SetLimiterKeys(s.Size())
		}

		remaining, _ := limiter.Remaining(ctx, key)
		resetTime, _ := limiter.Reset(ctx, key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			if obs != nil {
				obs.IncrementRateLimited()
			}
			SetOutcome(c, string(relay.CodeRateLimitExceeded), false)
			c.AbortWithStatusJSON(relay.CodeRateLimitExceeded.Status(),
				relay.Failure(requestID, relay.CodeRateLimitExceeded, ""))
			return
		}

		c.Next()
	}
}
