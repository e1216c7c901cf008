package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/middleware"
	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/upstream"
	"github.com/akio-byte/navaltutka/internal/validate"
)

func respondOK(c *gin.Context, data any, warning string) {
	middleware.SetOutcome(c, "", false)
	id := middleware.GetRequestID(c)
	if warning != "" {
		c.JSON(http.StatusOK, relay.SuccessWithWarning(id, data, warning))
		return
	}
	c.JSON(http.StatusOK, relay.Success(id, data))
}

// respondError writes a failure envelope. An empty message uses the code's
// fixed text.
func respondError(c *gin.Context, code relay.Code, message string) {
	respondErrorStatus(c, code.Status(), code, message)
}

func respondErrorStatus(c *gin.Context, status int, code relay.Code, message string) {
	middleware.SetOutcome(c, string(code), false)
	c.AbortWithStatusJSON(status, relay.Failure(middleware.GetRequestID(c), code, message))
}

// decode reads and validates the body into dst, answering 413 or 400 itself.
// It reports whether the handler should continue.
func decode(c *gin.Context, v *validate.Validator, limit int64, dst any) bool {
	err := v.Decode(c.Request.Body, limit, dst)
	if err == nil {
		return true
	}

	var ve *validate.Error
	if !errors.As(err, &ve) {
		respondError(c, relay.CodeInternal, "")
		return false
	}
	if errors.Is(ve, validate.ErrPayloadTooLarge) {
		respondError(c, relay.CodePayloadTooLarge, ve.Message)
		return false
	}
	respondError(c, relay.CodeInvalidInput, ve.Message)
	return false
}

// upstreamFailure maps an adapter error to its envelope. The provider's own
// text is only logged.
func upstreamFailure(c *gin.Context, logger *zap.Logger, endpoint string, err error) {
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		logger.Error("relay request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		respondError(c, relay.CodeInternal, "")
		return
	}

	code := relay.FromUpstream(ue.Code)
	logger.Warn("upstream call failed",
		zap.String("endpoint", endpoint),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("code", string(code)),
		zap.Error(ue.Err))
	respondError(c, code, "")
}
