package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fotoklaser/face-finder/internal/face"
)

func TestFacesHandler_Embed_Success(t *testing.T) {
	det := &fakeDetector{faces: map[string][]face.Face{
		"a": {testFace([]float32{1, 0}, 0.9), testFace([]float32{0, 1}, 0.8)},
	}}
	f, server := setupFinder(t, map[string]string{"/a.jpg": "a"}, det)
	handler := NewFacesHandler(testConfig(), f)

	req := postJSON(t, "/api/v0/embed", map[string]any{
		"urls": []string{server.URL + "/a.jpg", server.URL + "/gone.jpg"},
	})
	recorder := httptest.NewRecorder()
	handler.Embed(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Success   bool `json:"success"`
		TotalURLs int  `json:"total_urls"`
		Results   []struct {
			Success  bool   `json:"success"`
			NumFaces int    `json:"num_faces"`
			Error    string `json:"error"`
		} `json:"results"`
	}
	parseJSONResponse(t, recorder, &resp)

	if !resp.Success || resp.TotalURLs != 2 {
		t.Errorf("response = %+v", resp)
	}
	if !resp.Results[0].Success || resp.Results[0].NumFaces != 2 {
		t.Errorf("first result = %+v", resp.Results[0])
	}
	if resp.Results[1].Success || resp.Results[1].Error == "" {
		t.Errorf("second result = %+v", resp.Results[1])
	}
}

func TestFacesHandler_Embed_Validation(t *testing.T) {
	f, _ := setupFinder(t, nil, &fakeDetector{})
	handler := NewFacesHandler(testConfig(), f)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing urls", map[string]any{}},
		{"urls not an array", map[string]any{"urls": "http://x/a.jpg"}},
		{"urls is null", map[string]any{"urls": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := postJSON(t, "/api/v0/embed", tt.body)
			recorder := httptest.NewRecorder()
			handler.Embed(recorder, req)
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestFacesHandler_Inspect_Success(t *testing.T) {
	det := &fakeDetector{faces: map[string][]face.Face{
		"a": {testFace([]float32{1, 0}, 0.95)},
	}}
	f, server := setupFinder(t, map[string]string{"/a.jpg": "a"}, det)
	handler := NewFacesHandler(testConfig(), f)

	req := postJSON(t, "/api/v0/inspect", map[string]any{"url": server.URL + "/a.jpg"})
	recorder := httptest.NewRecorder()
	handler.Inspect(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Success    bool `json:"success"`
		FacesCount int  `json:"faces_count"`
		Faces      []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		} `json:"faces"`
	}
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || resp.FacesCount != 1 || resp.Faces[0].Score != 0.95 {
		t.Errorf("response = %+v", resp)
	}
}

func TestFacesHandler_Inspect_MissingURL(t *testing.T) {
	f, _ := setupFinder(t, nil, &fakeDetector{})
	handler := NewFacesHandler(testConfig(), f)

	req := postJSON(t, "/api/v0/inspect", map[string]any{})
	recorder := httptest.NewRecorder()
	handler.Inspect(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestFacesHandler_Similar_Success(t *testing.T) {
	det := &fakeDetector{faces: map[string][]face.Face{
		"query": {testFace([]float32{1, 0, 0}, 0.9)},
		"near":  {testFace([]float32{0.9, 0.1, 0}, 0.8)},
	}}
	f, server := setupFinder(t, map[string]string{
		"/query.jpg": "query",
		"/near.jpg":  "near",
	}, det)
	f.EmbedURLs(context.Background(), []string{server.URL + "/near.jpg"}, nil)
	handler := NewFacesHandler(testConfig(), f)

	req := postJSON(t, "/api/v0/similar", map[string]any{"url": server.URL + "/query.jpg", "limit": 5})
	recorder := httptest.NewRecorder()
	handler.Similar(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Success bool `json:"success"`
		Results []struct {
			Item       string  `json:"item"`
			Similarity float64 `json:"similarity"`
		} `json:"results"`
	}
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || len(resp.Results) != 1 || resp.Results[0].Item != "near.jpg" {
		t.Errorf("response = %+v", resp)
	}
}
