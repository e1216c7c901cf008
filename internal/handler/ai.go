package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/middleware"
	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/service"
	"github.com/akio-byte/navaltutka/internal/validate"
)

// WarningHeader carries a degradation note on streamed responses, which have
// no envelope to put it in.
const WarningHeader = "X-Relay-Warning"

// StreamObserver tracks open ndjson streams.
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

type AIHandler struct {
	service   *service.RelayService
	validator *validate.Validator
	streams   StreamObserver
	logger    *zap.Logger
}

func NewAIHandler(svc *service.RelayService, v *validate.Validator, streams StreamObserver, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		service:   svc,
		validator: v,
		streams:   streams,
		logger:    logger,
	}
}

// Handles POST /api/ai/chat
func (h *AIHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if !decode(c, h.validator, validate.DefaultMaxBytes, &req) {
		return
	}

	if req.Stream {
		h.chatStream(c, &req)
		return
	}

	text, warning, err := h.service.Chat(c.Request.Context(), &req)
	if err != nil {
		upstreamFailure(c, h.logger, "chat", err)
		return
	}
	respondOK(c, text, warning)
}

func (h *AIHandler) chatStream(c *gin.Context, req *service.ChatRequest) {
	events, warning, err := h.service.ChatStream(c.Request.Context(), req)
	if err != nil {
		// nothing has been written yet, so setup failures get a normal envelope
		upstreamFailure(c, h.logger, "chat", err)
		return
	}

	relay.StreamHeaders(c.Writer.Header())
	if warning != "" {
		c.Header(WarningHeader, warning)
	}
	c.Status(http.StatusOK)

	if h.streams != nil {
		h.streams.StreamOpened()
		defer h.streams.StreamClosed()
	}

	id := middleware.GetRequestID(c)
	res := relay.Relay(c.Writer, c.Writer.Flush, id, events)

	middleware.SetOutcome(c, string(res.Code), true)
	if res.WriteErr != nil {
		h.logger.Info("stream client went away",
			zap.String("request_id", id),
			zap.Int("chunks", res.Chunks),
			zap.Error(res.WriteErr))
	}
	h.logger.Debug("stream finished",
		zap.String("request_id", id),
		zap.String("terminal", res.Terminal),
		zap.Int("chunks", res.Chunks))
}

// Handles POST /api/ai/brief
func (h *AIHandler) Brief(c *gin.Context) {
	var req service.BriefRequest
	if !decode(c, h.validator, validate.DefaultMaxBytes, &req) {
		return
	}

	text, err := h.service.Brief(c.Request.Context(), &req)
	if err != nil {
		upstreamFailure(c, h.logger, "brief", err)
		return
	}
	respondOK(c, text, "")
}

// Handles POST /api/ai/horizon
func (h *AIHandler) Horizon(c *gin.Context) {
	var req service.HorizonRequest
	if !decode(c, h.validator, validate.DefaultMaxBytes, &req) {
		return
	}

	text, err := h.service.Horizon(c.Request.Context(), &req)
	if err != nil {
		upstreamFailure(c, h.logger, "horizon", err)
		return
	}
	respondOK(c, text, "")
}

// Handles POST /api/ai/report
func (h *AIHandler) Report(c *gin.Context) {
	var req service.ReportRequest
	if !decode(c, h.validator, validate.DefaultMaxBytes, &req) {
		return
	}

	text, err := h.service.Report(c.Request.Context(), &req)
	if err != nil {
		upstreamFailure(c, h.logger, "report", err)
		return
	}
	respondOK(c, text, "")
}

// Handles POST /api/ai/rank
func (h *AIHandler) Rank(c *gin.Context) {
	var req service.RankRequest
	if !decode(c, h.validator, validate.DefaultMaxBytes, &req) {
		return
	}

	ranking, warning, err := h.service.Rank(c.Request.Context(), &req)
	if err != nil {
		upstreamFailure(c, h.logger, "rank", err)
		return
	}
	respondOK(c, ranking, warning)
}
