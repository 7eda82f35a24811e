package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fotoklaser/face-finder/internal/constants"
	"github.com/fotoklaser/face-finder/internal/finder"
)

type urlRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit"`
}

// Inspect handles POST /api/v0/inspect. It returns face metadata for an
// image so the client can pick a target face index.
func (h *FacesHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "missing required field: url")
		return
	}

	result, err := h.finder.Inspect(r.Context(), req.URL)
	if err != nil {
		log.Printf("inspect %s: %v", sanitizeForLog(req.URL), err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"url":         result.URL,
		"faces_count": result.FacesCount,
		"faces":       result.Faces,
	})
}

// Similar handles POST /api/v0/similar, returning the cached faces nearest
// to the best face of the given image.
func (h *FacesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "missing required field: url")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = constants.DefaultSimilarLimit
	}

	results, err := h.finder.Similar(r.Context(), req.URL, limit)
	if err != nil {
		if errors.Is(err, finder.ErrNoTargetFace) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("similar %s: %v", sanitizeForLog(req.URL), err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for i := range results {
		results[i].Similarity = round4(results[i].Similarity)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     req.URL,
		"results": results,
	})
}
