package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/service"
	"github.com/akio-byte/navaltutka/internal/snapshot"
)

const snapshotCacheControl = "public, max-age=3600"

type SnapshotHandler struct {
	store  service.SnapshotSource
	now    func() time.Time
	logger *zap.Logger
}

func NewSnapshotHandler(store service.SnapshotSource, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: store, now: time.Now, logger: logger}
}

// Handles GET /api/snapshot
func (h *SnapshotHandler) Snapshot(c *gin.Context) {
	entry, err := h.store.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load data"})
		return
	}

	c.Header("Cache-Control", snapshotCacheControl)
	c.Header("ETag", entry.ETag)
	c.Header("Last-Modified", entry.LoadedAt.UTC().Format(http.TimeFormat))

	if etagMatches(c.GetHeader("If-None-Match"), entry.ETag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, entry.Data)
}

// Handles GET /api/brief
func (h *SnapshotHandler) BriefExport(c *gin.Context) {
	entry, err := h.store.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to generate brief", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate brief"})
		return
	}

	md := snapshot.BriefMarkdown(entry.Data, h.now())
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
