package finder

import (
	"context"
	"sync/atomic"

	"github.com/fotoklaser/face-finder/internal/constants"
	"github.com/fotoklaser/face-finder/internal/face"
)

// FindRequest describes one scope search.
type FindRequest struct {
	Target         string
	Scope          []string
	Threshold      float64
	TargetFace     face.Selector
	MaxResults     int
	Concurrency    int
	IncludeDetails bool

	// OnProgress, when set, is called after each scope image finishes.
	OnProgress func(done, total int)
}

// FaceInfo is the client-facing summary of one detected face.
type FaceInfo struct {
	Index int       `json:"index"`
	BBox  []float64 `json:"bbox"`
	Score float64   `json:"score"`
}

// Match is one scope image in which the target was found.
type Match struct {
	URL               string                `json:"url"`
	Similarity        float64               `json:"similarity"`
	MatchingFaces     int                   `json:"matching_faces"`
	TargetFacesFound  int                   `json:"target_faces_found"`
	TargetFaceIndices []int                 `json:"target_face_indices"`
	AllSimilarities   []float64             `json:"all_similarities"`
	Pairs             []face.MatchCandidate `json:"detailed_matches,omitempty"`
	ScopeFaceCount    int                   `json:"scope_faces_count,omitempty"`
}

// FindResult is the aggregate outcome of a scope search.
type FindResult struct {
	TargetURL             string     `json:"target_url"`
	TargetFacesCount      int        `json:"target_faces_count"`
	Threshold             float64    `json:"threshold"`
	TotalScopeImages      int        `json:"total_scope_images"`
	Matches               []Match    `json:"matches"`
	SelectedTargetIndices []int      `json:"selected_target_indices,omitempty"`
	TargetSummary         []FaceInfo `json:"target_summary,omitempty"`
}

func summarize(faces []face.Face) []FaceInfo {
	infos := make([]FaceInfo, len(faces))
	for i, f := range faces {
		infos[i] = FaceInfo{Index: i, BBox: f.BBox, Score: f.DetScore}
	}
	return infos
}

// FindInScope searches for the target person in every scope image. Scope
// images that fail to download or contain no matching face are absent from
// the result rather than failing the whole request.
func (f *Finder) FindInScope(ctx context.Context, req FindRequest) (*FindResult, error) {
	if req.Concurrency == 0 {
		req.Concurrency = constants.DefaultConcurrency
	}

	targetFaces, _, err := f.facesForURL(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if len(targetFaces) == 0 {
		return nil, ErrNoTargetFace
	}

	selected := req.TargetFace.Select(targetFaces)
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	var done atomic.Int64
	fetch := func(ctx context.Context, item string) ([]face.Face, error) {
		faces, _, err := f.facesForURL(ctx, item)
		if req.OnProgress != nil {
			req.OnProgress(int(done.Add(1)), len(req.Scope))
		}
		return faces, err
	}

	opts := face.MatchOptions{
		Threshold:   req.Threshold,
		MaxResults:  req.MaxResults,
		Concurrency: req.Concurrency,
	}
	results := face.MatchScope(ctx, targetFaces, selected, req.Scope, opts, fetch)

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		sims := make([]float64, len(r.Pairs))
		for i, p := range r.Pairs {
			sims[i] = p.Similarity
		}
		m := Match{
			URL:               r.Item,
			Similarity:        r.BestSimilarity,
			MatchingFaces:     len(r.Pairs),
			TargetFacesFound:  len(r.TargetFaceIndices),
			TargetFaceIndices: r.TargetFaceIndices,
			AllSimilarities:   sims,
		}
		if req.IncludeDetails {
			m.Pairs = r.Pairs
			m.ScopeFaceCount = r.ScopeFaceCount
		}
		matches = append(matches, m)
	}

	result := &FindResult{
		TargetURL:        req.Target,
		TargetFacesCount: len(targetFaces),
		Threshold:        req.Threshold,
		TotalScopeImages: len(req.Scope),
		Matches:          matches,
	}
	if req.IncludeDetails {
		result.SelectedTargetIndices = selected
		result.TargetSummary = summarize(targetFaces)
	}
	return result, nil
}
