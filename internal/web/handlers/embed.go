package handlers

import (
	"encoding/json"
	"net/http"
)

type embedRequest struct {
	URLs json.RawMessage `json:"urls"`
}

// Embed handles POST /api/v0/embed, pre-warming the cache for a list of URLs.
func (h *FacesHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.URLs == nil {
		respondError(w, http.StatusBadRequest, "missing required field: urls")
		return
	}

	var urls []string
	if err := json.Unmarshal(req.URLs, &urls); err != nil || urls == nil {
		respondError(w, http.StatusBadRequest, "urls must be an array")
		return
	}

	results := h.finder.EmbedURLs(r.Context(), urls, nil)

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"total_urls": len(urls),
		"results":    results,
	})
}
