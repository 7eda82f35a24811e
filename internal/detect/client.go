// Package detect talks to the face detection service. The service is a black
// box that turns an image into a list of faces with embeddings; this package
// only handles the transport.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/fotoklaser/face-finder/internal/face"
	"github.com/fotoklaser/face-finder/internal/imaging"
)

const defaultDetectorURL = "http://localhost:8000"

// Detector produces the faces present in an image. An empty slice is a valid
// result (no faces), not an error.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]face.Face, error)
}

// Client computes face embeddings using the detection server.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a detection client for the given server.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// faceDetection is a single detected face in the server response.
type faceDetection struct {
	FaceIndex int         `json:"face_index"`
	Dim       int         `json:"dim"`
	Embedding []float32   `json:"embedding"`
	BBox      []float64   `json:"bbox"` // [x1, y1, x2, y2]
	Keypoints [][]float64 `json:"kps"`
	DetScore  float64     `json:"det_score"`
}

// faceResponse is the response from the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", imaging.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Detect runs face detection and returns the embeddings of all faces found.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]face.Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]face.Face, 0, len(faceResp.Faces))
	for _, d := range faceResp.Faces {
		faces = append(faces, face.Face{
			Embedding: d.Embedding,
			BBox:      d.BBox,
			Keypoints: d.Keypoints,
			DetScore:  d.DetScore,
		})
	}
	return faces, nil
}
