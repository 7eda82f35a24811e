package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Empty values read as unset.
	for _, key := range []string{"CACHE_DIR", "FIND_THRESHOLD", "DOWNLOAD_MAX_BYTES", "DETECTOR_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Cache.Dir != "cache" {
		t.Errorf("Cache.Dir = %q, want cache", cfg.Cache.Dir)
	}
	if cfg.Find.Threshold != 0.6 {
		t.Errorf("Find.Threshold = %f, want 0.6", cfg.Find.Threshold)
	}
	if cfg.Download.MaxBytes != 64<<20 {
		t.Errorf("Download.MaxBytes = %d", cfg.Download.MaxBytes)
	}
	if cfg.Detector.Timeout != 120*time.Second {
		t.Errorf("Detector.Timeout = %v", cfg.Detector.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DETECTOR_URL", "http://faces:9000")
	t.Setenv("DETECTOR_SERIAL", "true")
	t.Setenv("CACHE_DIR", "/var/cache/faces")
	t.Setenv("FIND_THRESHOLD", "0.75")
	t.Setenv("FIND_CONCURRENCY", "12")
	t.Setenv("DOWNLOAD_TIMEOUT", "10s")

	cfg := Load()

	if cfg.Detector.URL != "http://faces:9000" {
		t.Errorf("Detector.URL = %q", cfg.Detector.URL)
	}
	if !cfg.Detector.Serial {
		t.Error("Detector.Serial not set")
	}
	if cfg.Cache.Dir != "/var/cache/faces" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Find.Threshold != 0.75 {
		t.Errorf("Find.Threshold = %f", cfg.Find.Threshold)
	}
	if cfg.Find.Concurrency != 12 {
		t.Errorf("Find.Concurrency = %d", cfg.Find.Concurrency)
	}
	if cfg.Download.Timeout != 10*time.Second {
		t.Errorf("Download.Timeout = %v", cfg.Download.Timeout)
	}
}

func TestEnvValidation(t *testing.T) {
	t.Setenv("FIND_THRESHOLD", "1.5") // out of range
	t.Setenv("FIND_CONCURRENCY", "-3")
	t.Setenv("DOWNLOAD_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Find.Threshold != 0.6 {
		t.Errorf("invalid threshold not rejected: %f", cfg.Find.Threshold)
	}
	if cfg.Find.Concurrency != 5 {
		t.Errorf("invalid concurrency not rejected: %d", cfg.Find.Concurrency)
	}
	if cfg.Download.Timeout != 30*time.Second {
		t.Errorf("invalid timeout not rejected: %v", cfg.Download.Timeout)
	}
}
