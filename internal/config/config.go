package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fotoklaser/face-finder/internal/constants"
)

type Config struct {
	Detector DetectorConfig
	Cache    CacheConfig
	Download DownloadConfig
	Find     FindConfig
}

type DetectorConfig struct {
	URL     string        // defaults to http://localhost:8000
	Model   string        // detection model name sent to the service
	Timeout time.Duration // per-request timeout (default 120s)
	Serial  bool          // serialize detection requests for single-session backends
}

type CacheConfig struct {
	Dir string // embedding cache directory (default "cache")
}

type DownloadConfig struct {
	Timeout  time.Duration // per-image download timeout (default 30s)
	MaxBytes int64         // maximum image size in bytes (default 64 MiB)
}

type FindConfig struct {
	Threshold   float64 // default similarity threshold
	Concurrency int     // parallel scope downloads
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration string.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envBool(key string) bool {
	s := os.Getenv(key)
	return s == "1" || s == "true" || s == "yes"
}

func Load() *Config {
	return &Config{
		Detector: DetectorConfig{
			URL:     os.Getenv("DETECTOR_URL"),
			Model:   os.Getenv("DETECTOR_MODEL"),
			Timeout: envDuration("DETECTOR_TIMEOUT", 120*time.Second),
			Serial:  envBool("DETECTOR_SERIAL"),
		},
		Cache: CacheConfig{
			Dir: envDefault("CACHE_DIR", "cache"),
		},
		Download: DownloadConfig{
			Timeout:  envDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
			MaxBytes: int64(envInt("DOWNLOAD_MAX_BYTES", 64<<20)),
		},
		Find: FindConfig{
			Threshold:   envFloat("FIND_THRESHOLD", constants.DefaultThreshold),
			Concurrency: envInt("FIND_CONCURRENCY", constants.DefaultConcurrency),
		},
	}
}

func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
