package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
)

// CacheHandler exposes result cache administration endpoints.
type CacheHandler struct {
	cache  interfaces.ResultCache
	logger arbor.ILogger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(cache interfaces.ResultCache, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: logger,
	}
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// Clear handles POST /api/cache/clear.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.cache.ClearAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear cache")
		WriteError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}

	WriteSuccess(w, "Cache cleared")
}
