package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/fotoklaser/face-finder/internal/cache"
)

// CacheHandler serves the cache maintenance endpoints.
type CacheHandler struct {
	cache *cache.Cache
}

func NewCacheHandler(c *cache.Cache) *CacheHandler {
	return &CacheHandler{cache: c}
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats()
	if err != nil {
		log.Printf("cache stats: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"cache_stats": stats,
	})
}

// Clear handles POST /api/cache/clear.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(); err != nil {
		log.Printf("cache clear: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cache cleared successfully",
	})
}

// Cleanup handles POST /api/cache/cleanup, dropping entries whose source
// files disappeared or changed.
func (h *CacheHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.InvalidateStale()
	if err != nil {
		log.Printf("cache cleanup: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("Cleaned up %d invalid cache entries", removed),
		"removed_entries": removed,
	})
}
