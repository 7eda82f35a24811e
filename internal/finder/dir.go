package finder

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/fotoklaser/face-finder/internal/face"
)

// DirMatch is one local image in which the reference person was found.
type DirMatch struct {
	Filename        string    `json:"filename"`
	Path            string    `json:"path"`
	Similarity      float64   `json:"similarity"`
	MatchingFaces   int       `json:"matching_faces"`
	AllSimilarities []float64 `json:"all_similarities"`
}

// FindInDir searches a local directory of jpg files for the person shown in
// the reference image URL. Unlike FindInScope it compares every detected face
// against the first face of the reference, counting all faces above the
// threshold, which keeps the behavior of the original directory scanner.
func (f *Finder) FindInDir(ctx context.Context, targetURL, dir string, threshold float64, onProgress func(done, total int)) ([]DirMatch, error) {
	targetFaces, _, err := f.facesForURL(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if len(targetFaces) == 0 {
		return nil, ErrNoTargetFace
	}
	reference := targetFaces[0].Embedding

	var files []string
	for _, pattern := range []string{"*.jpg", "*.jpeg"} {
		found, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		files = append(files, found...)
	}
	sort.Strings(files)

	var matches []DirMatch
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		faces, _, err := f.facesForFile(ctx, path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}

		best := -1.0
		var above []float64
		for _, sf := range faces {
			sim := face.CosineSimilarity(reference, sf.Embedding)
			if sim > best {
				best = sim
			}
			if sim >= threshold {
				above = append(above, sim)
			}
		}
		if len(above) > 0 {
			matches = append(matches, DirMatch{
				Filename:        filepath.Base(path),
				Path:            path,
				Similarity:      best,
				MatchingFaces:   len(above),
				AllSimilarities: above,
			})
		}

		if onProgress != nil {
			onProgress(i+1, len(files))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}
