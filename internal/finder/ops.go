package finder

import (
	"context"

	"github.com/fotoklaser/face-finder/internal/cache"
	"github.com/fotoklaser/face-finder/internal/face"
)

// EmbedResult reports the outcome of pre-warming one URL.
type EmbedResult struct {
	URL      string `json:"url"`
	OK       bool   `json:"success"`
	Cached   bool   `json:"cached"`
	NumFaces int    `json:"num_faces"`
	Error    string `json:"error,omitempty"`
}

// EmbedURLs downloads the given URLs and stores their face embeddings in the
// cache so later find runs start warm. Failures are reported per URL.
func (f *Finder) EmbedURLs(ctx context.Context, urls []string, onProgress func(done, total int)) []EmbedResult {
	results := make([]EmbedResult, 0, len(urls))
	for i, url := range urls {
		faces, hit, err := f.facesForURL(ctx, url)
		if err != nil {
			results = append(results, EmbedResult{URL: url, Error: err.Error()})
		} else {
			results = append(results, EmbedResult{
				URL:      url,
				OK:       true,
				Cached:   hit,
				NumFaces: len(faces),
			})
		}
		if onProgress != nil {
			onProgress(i+1, len(urls))
		}
	}
	return results
}

// InspectResult lists the faces found in one image so a client can pick a
// target face index.
type InspectResult struct {
	URL        string     `json:"url"`
	FacesCount int        `json:"faces_count"`
	Faces      []FaceInfo `json:"faces"`
}

// Inspect returns the face metadata of an image URL.
func (f *Finder) Inspect(ctx context.Context, url string) (*InspectResult, error) {
	faces, _, err := f.facesForURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return &InspectResult{
		URL:        url,
		FacesCount: len(faces),
		Faces:      summarize(faces),
	}, nil
}

// SimilarFace is one cached face close to the query face.
type SimilarFace struct {
	Group      string  `json:"group"`
	Item       string  `json:"item"`
	FaceIndex  int     `json:"face_index"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}

// Similar finds the cached faces nearest to the best face of the query image
// using an approximate nearest neighbor index built over the whole cache.
func (f *Finder) Similar(ctx context.Context, url string, limit int) ([]SimilarFace, error) {
	faces, _, err := f.facesForURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoTargetFace
	}

	sel := face.Selector{Policy: face.PolicyBest}
	query := faces[sel.Select(faces)[0]].Embedding

	idx := cache.NewFaceIndex()
	if err := idx.Build(f.cache); err != nil {
		return nil, err
	}

	// The query image was just cached, so its own faces are in the index.
	// Fetch extra neighbors and filter them out.
	qGroup, qItem := cache.SplitURL(url)
	nearest, sims, err := idx.Search(query, limit+len(faces))
	if err != nil {
		return nil, err
	}

	out := make([]SimilarFace, 0, limit)
	for i, n := range nearest {
		if n.Group == qGroup && n.Item == qItem {
			continue
		}
		out = append(out, SimilarFace{
			Group:      n.Group,
			Item:       n.Item,
			FaceIndex:  n.FaceIndex,
			Similarity: sims[i],
			Score:      n.Face.DetScore,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
