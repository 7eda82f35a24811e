package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fotoklaser/face-finder/internal/cache"
	"github.com/fotoklaser/face-finder/internal/config"
	"github.com/fotoklaser/face-finder/internal/face"
	"github.com/fotoklaser/face-finder/internal/finder"
	"github.com/fotoklaser/face-finder/internal/imaging"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Find: config.FindConfig{Threshold: 0.6, Concurrency: 2},
	}
}

// fakeDetector maps image content to canned faces
type fakeDetector struct {
	faces map[string][]face.Face
}

func (d *fakeDetector) Detect(_ context.Context, data []byte) ([]face.Face, error) {
	return d.faces[string(data)], nil
}

func testFace(emb []float32, score float64) face.Face {
	return face.Face{Embedding: emb, BBox: []float64{0, 0, 100, 100}, DetScore: score}
}

// setupFinder wires a finder against an image server and a fresh cache.
// Image bodies double as the detector lookup key.
func setupFinder(t *testing.T, images map[string]string, det *fakeDetector) (*finder.Finder, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := images[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	dl := imaging.NewDownloader(5*time.Second, 0)
	return finder.New(c, det, dl), server
}

// postJSON creates a POST request with a JSON body
func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, recorder.Code, recorder.Body.String())
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
}
