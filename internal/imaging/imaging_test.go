package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte("plain text"), "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.data); got != tt.expected {
				t.Errorf("DetectMIMEType = %q, want %q", got, tt.expected)
			}
		})
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDownscale(t *testing.T) {
	data := encodePNG(t, 200, 100)

	resized, err := Downscale(data, 50)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Errorf("resized to %dx%d, want 50x25", img.Bounds().Dx(), img.Bounds().Dy())
	}
	if DetectMIMEType(resized) != "image/jpeg" {
		t.Error("downscaled output is not JPEG")
	}
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 30, 20)
	out, err := Downscale(data, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Error("small image was modified")
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	if _, err := Downscale([]byte("not an image"), 100); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDownloaderFetch(t *testing.T) {
	payload := encodePNG(t, 10, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dl := NewDownloader(5*time.Second, 0)
	d, err := dl.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Remove()

	if !bytes.Equal(d.Data, payload) {
		t.Error("downloaded data differs from payload")
	}
	path := d.Path
	if _, err := os.Stat(path); err != nil {
		t.Errorf("temp file missing: %v", err)
	}

	d.Remove()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp file not removed")
	}
	d.Remove() // second call must be a no-op
}

func TestDownloaderFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dl := NewDownloader(5*time.Second, 0)
	if _, err := dl.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestDownloaderSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0xAB}, 2048))
	}))
	defer server.Close()

	dl := NewDownloader(5*time.Second, 1024)
	if _, err := dl.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for oversized response")
	}
}
