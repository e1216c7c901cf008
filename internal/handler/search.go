package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/middleware"
	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/search"
	"github.com/akio-byte/navaltutka/internal/service"
	"github.com/akio-byte/navaltutka/internal/validate"
)

// Searcher is the search-ingest backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

type SearchHandler struct {
	searcher  Searcher
	validator *validate.Validator
	logger    *zap.Logger
}

func NewSearchHandler(s Searcher, v *validate.Validator, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{searcher: s, validator: v, logger: logger}
}

// Handles POST /api/ingest/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if !decode(c, h.validator, validate.SearchMaxBytes, &req) {
		return
	}

	results, err := h.searcher.Search(c.Request.Context(), req.Query)
	if err == nil {
		respondOK(c, results, "")
		return
	}

	var fetchErr *search.FetchError
	switch {
	case errors.Is(err, search.ErrMissingKey):
		respondError(c, relay.CodeUpstreamMissingKey, "Search API key not configured")
	case errors.As(err, &fetchErr):
		h.logger.Warn("search fetch failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("status", fetchErr.Status),
			zap.Error(err))
		respondErrorStatus(c, http.StatusBadGateway, relay.CodeUpstreamError, "Failed to fetch search results")
	default:
		h.logger.Error("search failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		respondError(c, relay.CodeInternal, "")
	}
}
