package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/fotoklaser/face-finder/internal/cache"
	"github.com/fotoklaser/face-finder/internal/config"
	"github.com/fotoklaser/face-finder/internal/detect"
	"github.com/fotoklaser/face-finder/internal/finder"
	"github.com/fotoklaser/face-finder/internal/imaging"
)

// newFinder wires the cache, detection client and downloader from config.
// The concrete client is returned alongside the finder so commands can
// report which detection model is in use.
func newFinder(cfg *config.Config) (*finder.Finder, *detect.Client, error) {
	c, err := cache.Open(cfg.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache at %s: %w", cfg.Cache.Dir, err)
	}

	client := detect.NewClient(cfg.Detector.URL, cfg.Detector.Model, cfg.Detector.Timeout)
	var detector detect.Detector = client
	if cfg.Detector.Serial {
		detector = detect.NewSerialDetector(detector)
	}

	dl := imaging.NewDownloader(cfg.Download.Timeout, cfg.Download.MaxBytes)
	return finder.New(c, detector, dl), client, nil
}

// openCache opens the embedding cache for maintenance commands.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	c, err := cache.Open(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", cfg.Cache.Dir, err)
	}
	return c, nil
}

// newProgressBar builds the progress bar used by long-running commands.
func newProgressBar(total int, description, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}
