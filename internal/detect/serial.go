package detect

import (
	"context"

	"github.com/fotoklaser/face-finder/internal/face"
)

// SerialDetector serializes calls to a wrapped detector. Some detection
// backends are not safe for concurrent requests; wrapping them here keeps the
// rest of the pipeline free to fan out.
type SerialDetector struct {
	inner Detector
	gate  chan struct{}
}

// NewSerialDetector wraps inner so at most one Detect call runs at a time.
func NewSerialDetector(inner Detector) *SerialDetector {
	return &SerialDetector{inner: inner, gate: make(chan struct{}, 1)}
}

// Detect acquires the gate, honoring context cancellation while waiting.
func (s *SerialDetector) Detect(ctx context.Context, imageData []byte) ([]face.Face, error) {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.gate }()
	return s.inner.Detect(ctx, imageData)
}
