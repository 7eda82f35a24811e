// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultThreshold is the default minimum cosine similarity for a face
	// pair to be considered a match
	DefaultThreshold = 0.6

	// DefaultSimilarLimit is the default number of nearest faces returned
	// by similarity search
	DefaultSimilarLimit = 10
)

// Processing constants
const (
	// DefaultConcurrency is the default number of scope images processed
	// in parallel during a find run
	DefaultConcurrency = 5

	// MaxImageSize is the maximum dimension (width or height) an image is
	// downscaled to before being sent to the detection service
	MaxImageSize = 1920
)
