package cache

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// ErrSourceMissing reports that the underlying source of a cached item no
// longer exists and its fingerprint cannot be computed.
var ErrSourceMissing = errors.New("source missing")

// Fingerprint returns the content fingerprint of raw data as a 16-character
// hex string.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// FingerprintFile computes the content fingerprint of a file on disk.
// Returns ErrSourceMissing when the file does not exist.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrSourceMissing
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
