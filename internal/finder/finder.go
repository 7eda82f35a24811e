// Package finder glues the embedding cache, the detection service and the
// image downloader into the operations exposed by the CLI and the HTTP API.
package finder

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/fotoklaser/face-finder/internal/cache"
	"github.com/fotoklaser/face-finder/internal/constants"
	"github.com/fotoklaser/face-finder/internal/detect"
	"github.com/fotoklaser/face-finder/internal/face"
	"github.com/fotoklaser/face-finder/internal/imaging"
)

var (
	// ErrNoTargetFace is returned when the target image contains no faces.
	ErrNoTargetFace = errors.New("no face detected in target image")

	// ErrEmptySelection is returned when the target face selector matches
	// none of the detected faces.
	ErrEmptySelection = errors.New("target face selector did not select any faces")
)

// Finder owns the shared cache handle and detection client. One instance is
// created at process start and injected into commands and handlers.
type Finder struct {
	cache      *cache.Cache
	detector   detect.Detector
	downloader *imaging.Downloader
	flight     singleflight.Group
	maxImage   int
}

func New(c *cache.Cache, d detect.Detector, dl *imaging.Downloader) *Finder {
	return &Finder{
		cache:      c,
		detector:   d,
		downloader: dl,
		maxImage:   constants.MaxImageSize,
	}
}

// Cache exposes the underlying cache for maintenance commands.
func (f *Finder) Cache() *cache.Cache {
	return f.cache
}

type facesResult struct {
	faces []face.Face
	hit   bool
}

// detect downscales the image for transport and asks the detection service
// for faces. Images Go cannot decode are sent as-is; the service supports
// more formats than the standard decoders do.
func (f *Finder) detect(ctx context.Context, data []byte) ([]face.Face, error) {
	resized, err := imaging.Downscale(data, f.maxImage)
	if err != nil {
		log.Printf("downscale failed, sending original: %v", err)
		resized = data
	}
	return f.detector.Detect(ctx, resized)
}

// facesForURL downloads url and returns its faces, consulting the cache
// keyed by the downloaded content. Concurrent requests for the same URL are
// collapsed into a single download and detection.
func (f *Finder) facesForURL(ctx context.Context, url string) ([]face.Face, bool, error) {
	v, err, _ := f.flight.Do(url, func() (any, error) {
		dl, err := f.downloader.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		defer dl.Remove()

		group, item := cache.SplitURL(url)
		src := cache.BytesSource(url, dl.Data)
		faces, hit, err := f.cache.GetOrCompute(ctx, group, item, src, func(ctx context.Context) ([]face.Face, error) {
			return f.detect(ctx, dl.Data)
		})
		if err != nil {
			return nil, err
		}
		return facesResult{faces: faces, hit: hit}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(facesResult)
	return r.faces, r.hit, nil
}

// facesForFile returns the faces of a local image file, cached under the
// group derived from its filename.
func (f *Finder) facesForFile(ctx context.Context, path string) ([]face.Face, bool, error) {
	v, err, _ := f.flight.Do(path, func() (any, error) {
		src, err := cache.FileSource(path)
		if err != nil {
			return nil, err
		}
		group := cache.GroupKeyForName(filepath.Base(path))
		faces, hit, err := f.cache.GetOrCompute(ctx, group, path, src, func(ctx context.Context) ([]face.Face, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return f.detect(ctx, data)
		})
		if err != nil {
			return nil, err
		}
		return facesResult{faces: faces, hit: hit}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(facesResult)
	return r.faces, r.hit, nil
}
