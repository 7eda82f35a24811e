package imaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDownloadTimeout = 30 * time.Second
	defaultMaxBytes        = 64 << 20 // 64 MiB
)

// Downloader fetches remote images into temporary files.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a downloader. Zero values select the defaults.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	if timeout == 0 {
		timeout = defaultDownloadTimeout
	}
	if maxBytes == 0 {
		maxBytes = defaultMaxBytes
	}
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Download holds one fetched image. Remove must be called when done.
type Download struct {
	URL  string
	Path string
	Data []byte
}

// Remove deletes the temporary file. Safe to call more than once.
func (d *Download) Remove() {
	if d.Path != "" {
		_ = os.Remove(d.Path)
		d.Path = ""
	}
}

// Fetch downloads url into a uniquely named temporary file and returns its
// content. The size cap guards against unexpectedly large responses.
func (dl *Downloader) Fetch(ctx context.Context, url string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := dl.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, dl.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > dl.maxBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", dl.maxBytes)
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("face-finder-%s.img", uuid.NewString()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	return &Download{URL: url, Path: path, Data: data}, nil
}
