// Package extract talks to the external embedding service that turns a face
// photo into a vector. The service owns the ML model; this package owns the
// transport, image preprocessing and response validation.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/recognition"
)

const (
	defaultEmbeddingURL = "http://localhost:8001"
	defaultTimeout      = 30 * time.Second

	// Faces are detectable well below this size; larger uploads just waste
	// bandwidth and service memory.
	maxImageEdge = 1024
)

var (
	// ErrNoFaceDetected means the service found no face in the image.
	ErrNoFaceDetected = errors.New("no face detected in image")
	// ErrMultipleFacesDetected means the image contains more than one face,
	// so there is no unambiguous subject to embed.
	ErrMultipleFacesDetected = errors.New("multiple faces detected in image")
)

// Client calls the embedding service over HTTP.
type Client struct {
	parsedURL *url.URL
	client    *http.Client
}

// NewClient creates an embedding service client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid embedding service URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid embedding service URL scheme %q: must be http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("invalid embedding service URL: missing host")
	}
	return &Client{
		parsedURL: parsed,
		client:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// embedResponse represents a response from the embedding service.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
	FaceCount int       `json:"face_count"`
}

// Embed sends an image to the service and returns the face embedding.
// The image is downscaled before upload when it exceeds maxImageEdge.
func (c *Client) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	resized, err := ResizeImage(imageData, maxImageEdge)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(resized); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	reqURL := c.parsedURL.JoinPath("/embed/face")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var embedResp embedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	switch {
	case embedResp.FaceCount == 0:
		return nil, ErrNoFaceDetected
	case embedResp.FaceCount > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleFacesDetected, embedResp.FaceCount)
	}

	if len(embedResp.Embedding) != recognition.EmbeddingDim {
		return nil, fmt.Errorf("embedding service returned %d dimensions, want %d",
			len(embedResp.Embedding), recognition.EmbeddingDim)
	}

	return embedResp.Embedding, nil
}

// Healthy checks the service health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	reqURL := c.parsedURL.JoinPath("/health")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}
