package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akio-byte/navaltutka/internal/circuitbreaker"
	"github.com/akio-byte/navaltutka/internal/healthcheck"
	"github.com/akio-byte/navaltutka/internal/keypool"
)

// LimiterStats is implemented by limiters that keep their records in process.
type LimiterStats interface {
	Size() int
}

// Handles system-related endpoints
type SystemHandler struct {
	version   string
	backend   string
	limiter   LimiterStats // nil for the redis backend
	breaker   *circuitbreaker.CircuitBreaker
	keys      *keypool.Pool
	checker   *healthcheck.Checker
	startTime time.Time
}

type SystemConfig struct {
	Version        string
	LimiterBackend string
	Limiter        LimiterStats
	Breaker        *circuitbreaker.CircuitBreaker
	Keys           *keypool.Pool
	Checker        *healthcheck.Checker
}

func NewSystemHandler(cfg SystemConfig) *SystemHandler {
	return &SystemHandler{
		version:   cfg.Version,
		backend:   cfg.LimiterBackend,
		limiter:   cfg.Limiter,
		breaker:   cfg.Breaker,
		keys:      cfg.Keys,
		checker:   cfg.Checker,
		startTime: time.Now(),
	}
}

// Handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	status := healthcheck.Healthy
	checks := gin.H{}
	if h.checker != nil {
		status = h.checker.OverallHealth()
		for name, st := range h.checker.GetAllStatus() {
			checks[name] = st
		}
	}

	statusCode := http.StatusOK
	if status == healthcheck.Unhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status.String(),
		"service":   "navaltutka-relay",
		"version":   h.version,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Handles GET /admin/status
func (h *SystemHandler) Status(c *gin.Context) {
	limiter := gin.H{"backend": h.backend}
	if h.limiter != nil {
		limiter["tracked_clients"] = h.limiter.Size()
	}

	resp := gin.H{
		"relay":     "running",
		"limiter":   limiter,
		"uptime":    time.Since(h.startTime).Seconds(),
		"timestamp": time.Now().Unix(),
	}
	if h.breaker != nil {
		resp["circuit_breaker"] = breakerStatus(h.breaker.Metrics())
	}
	if h.keys != nil {
		resp["api_keys"] = gin.H{
			"configured": h.keys.Len(),
			"available":  h.keys.Available(),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Manually resets the upstream circuit breaker
func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	if h.breaker == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Circuit breaker disabled",
		})
		return
	}

	h.breaker.Reset()

	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit breaker reset successfully",
		"state":   h.breaker.State().String(),
	})
}

func breakerStatus(m circuitbreaker.Metrics) gin.H {
	return gin.H{
		"state":             m.State.String(),
		"failure_count":     m.FailureCount,
		"success_count":     m.SuccessCount,
		"last_failure_time": m.LastFailureTime,
		"last_state_change": m.LastStateChange,
	}
}
