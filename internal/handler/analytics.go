package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akio-byte/navaltutka/internal/service"
)

type AnalyticsHandler struct {
	service   *service.AnalyticsService
	retention time.Duration
}

func NewAnalyticsHandler(service *service.AnalyticsService, retention time.Duration) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, retention: retention}
}

// Handles GET /admin/analytics
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Handles GET /admin/logs
func (h *AnalyticsHandler) GetLogs(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Parse pagination
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	// Optional relay code filter, e.g. UPSTREAM_TIMEOUT
	code := c.Query("code")

	logs, err := h.service.GetLogs(c.Request.Context(), from, to, code, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// Handles DELETE /admin/logs
func (h *AnalyticsHandler) Cleanup(c *gin.Context) {
	deleted, err := h.service.CleanupOldLogs(c.Request.Context(), h.retention)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted":   deleted,
		"retention": h.retention.String(),
	})
}

// Parses 'from' and 'to' query parameters
func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	// Default: last 24 hours
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := parseTime(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if toStr := c.Query("to"); toStr != "" {
		parsed, err := parseTime(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}

// parseTime accepts RFC3339 or a unix timestamp in seconds.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	if ts, convErr := strconv.ParseInt(s, 10, 64); convErr == nil {
		return time.Unix(ts, 0), nil
	}
	return time.Time{}, err
}
