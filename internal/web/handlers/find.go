package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fotoklaser/face-finder/internal/config"
	"github.com/fotoklaser/face-finder/internal/face"
	"github.com/fotoklaser/face-finder/internal/finder"
)

// FacesHandler serves the face search and inspection endpoints.
type FacesHandler struct {
	finder *finder.Finder
	cfg    *config.Config
}

func NewFacesHandler(cfg *config.Config, f *finder.Finder) *FacesHandler {
	return &FacesHandler{finder: f, cfg: cfg}
}

type findInRequest struct {
	Target         string          `json:"target"`
	Scope          json.RawMessage `json:"scope"`
	Threshold      *float64        `json:"threshold"`
	TargetFace     any             `json:"target_face"`
	IncludeDetails bool            `json:"include_details"`
	MaxResults     int             `json:"max_results"`
	Concurrency    int             `json:"concurrency"`
}

type findInResponse struct {
	Success bool `json:"success"`
	*finder.FindResult
	TotalMatches int      `json:"total_matches"`
	URLs         []string `json:"urls"`
}

// FindInScope handles POST /api/v0/findIn.
func (h *FacesHandler) FindInScope(w http.ResponseWriter, r *http.Request) {
	var req findInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Target == "" || req.Scope == nil {
		respondError(w, http.StatusBadRequest, "missing required fields: scope and target")
		return
	}

	// A JSON null decodes into a nil slice without error; treat it like any
	// other non-array value.
	var scope []string
	if err := json.Unmarshal(req.Scope, &scope); err != nil || scope == nil {
		respondError(w, http.StatusBadRequest, "scope must be an array of URLs")
		return
	}

	threshold := h.cfg.Find.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		respondError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
		return
	}

	result, err := h.finder.FindInScope(r.Context(), finder.FindRequest{
		Target:         req.Target,
		Scope:          scope,
		Threshold:      threshold,
		TargetFace:     face.ParseSelector(req.TargetFace),
		MaxResults:     req.MaxResults,
		Concurrency:    req.Concurrency,
		IncludeDetails: req.IncludeDetails,
	})
	if err != nil {
		if errors.Is(err, finder.ErrNoTargetFace) || errors.Is(err, finder.ErrEmptySelection) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("findIn %s: %v", sanitizeForLog(req.Target), err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	urls := make([]string, len(result.Matches))
	for i := range result.Matches {
		m := &result.Matches[i]
		urls[i] = m.URL
		m.Similarity = round4(m.Similarity)
		for j := range m.AllSimilarities {
			m.AllSimilarities[j] = round4(m.AllSimilarities[j])
		}
		for j := range m.Pairs {
			m.Pairs[j].Similarity = round4(m.Pairs[j].Similarity)
		}
	}

	respondJSON(w, http.StatusOK, findInResponse{
		Success:      true,
		FindResult:   result,
		TotalMatches: len(result.Matches),
		URLs:         urls,
	})
}

type findDirRequest struct {
	URL           string   `json:"url"`
	Threshold     *float64 `json:"threshold"`
	DataDirectory string   `json:"data_directory"`
}

// FindInDir handles POST /api/findIn, the legacy local directory search.
func (h *FacesHandler) FindInDir(w http.ResponseWriter, r *http.Request) {
	var req findDirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "missing required field: url")
		return
	}

	threshold := h.cfg.Find.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		respondError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
		return
	}

	dir := req.DataDirectory
	if dir == "" {
		dir = "data"
	}

	matches, err := h.finder.FindInDir(r.Context(), req.URL, dir, threshold, nil)
	if err != nil {
		if errors.Is(err, finder.ErrNoTargetFace) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("findIn dir %s: %v", sanitizeForLog(dir), err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if matches == nil {
		matches = []finder.DirMatch{}
	}
	for i := range matches {
		matches[i].Similarity = round4(matches[i].Similarity)
		for j := range matches[i].AllSimilarities {
			matches[i].AllSimilarities[j] = round4(matches[i].AllSimilarities[j])
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"reference_url":  req.URL,
		"threshold":      threshold,
		"data_directory": dir,
		"total_matches":  len(matches),
		"matches":        matches,
	})
}
