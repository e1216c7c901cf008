package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger writes one structured access log line per request.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(KeyRequestID)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client", GetClientKey(c)),
		}
		if code := c.GetString(KeyCode); code != "" {
			fields = append(fields, zap.String("code", code))
		}
		if c.GetBool(KeyStreamed) {
			fields = append(fields, zap.Bool("streamed", true))
		}

		switch {
		case statusCode >= 500:
			logger.Error("request", fields...)
		case statusCode >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// RequestObserver counts responses per route and outcome.
type RequestObserver interface {
	ObserveRequest(endpoint, code string)
}

// Instrument reports every routed request to obs.
func Instrument(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		obs.ObserveRequest(endpoint, c.GetString(KeyCode))
	}
}
