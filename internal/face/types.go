// Package face provides face matching primitives shared between CLI and web
// handlers: cosine similarity, target face selection and the greedy scope
// matcher.
package face

// Face is a single detected face as produced by the detection service.
// Faces are created once by detection and never mutated afterwards.
type Face struct {
	Embedding []float32   `json:"embedding"`
	BBox      []float64   `json:"bbox,omitempty"` // [x1, y1, x2, y2] in pixels
	Keypoints [][]float64 `json:"keypoints,omitempty"`
	DetScore  float64     `json:"det_score,omitempty"`
}

// BBoxArea returns the bounding box area, or 0 for a missing or malformed box.
func (f Face) BBoxArea() float64 {
	if len(f.BBox) < 4 {
		return 0
	}
	w := f.BBox[2] - f.BBox[0]
	h := f.BBox[3] - f.BBox[1]
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w * h
}
