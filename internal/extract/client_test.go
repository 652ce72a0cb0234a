package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/recognition"
)

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func embedServer(t *testing.T, faceCount int, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		resp := embedResponse{
			Embedding: make([]float32, dim),
			Dim:       dim,
			FaceCount: faceCount,
		}
		if dim > 0 {
			resp.Embedding[0] = 1
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedSingleFace(t *testing.T) {
	server := embedServer(t, 1, recognition.EmbeddingDim)
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	vec, err := client.Embed(context.Background(), testImage(t, 100, 100))
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != recognition.EmbeddingDim {
		t.Errorf("expected %d dimensions, got %d", recognition.EmbeddingDim, len(vec))
	}
}

func TestEmbedNoFace(t *testing.T) {
	server := embedServer(t, 0, 0)
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.Embed(context.Background(), testImage(t, 100, 100))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestEmbedMultipleFaces(t *testing.T) {
	server := embedServer(t, 3, recognition.EmbeddingDim)
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.Embed(context.Background(), testImage(t, 100, 100))
	if !errors.Is(err, ErrMultipleFacesDetected) {
		t.Errorf("expected ErrMultipleFacesDetected, got %v", err)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	server := embedServer(t, 1, 128)
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Embed(context.Background(), testImage(t, 100, 100)); err == nil {
		t.Error("expected error for wrong embedding dimension")
	}
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Embed(context.Background(), testImage(t, 100, 100)); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://localhost:8001", false},
		{"valid https with trailing slash", "https://embed.internal/", false},
		{"empty falls back to default", "", false},
		{"bad scheme", "ftp://localhost", true},
		{"missing host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if err := client.Healthy(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}

func TestResizeImageDownscales(t *testing.T) {
	data := testImage(t, 2000, 1000)

	resized, err := ResizeImage(data, 1024)
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}
	if img.Bounds().Dx() != 1024 {
		t.Errorf("expected width 1024, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 512 {
		t.Errorf("expected height 512 to keep aspect ratio, got %d", img.Bounds().Dy())
	}
}

func TestResizeImageSmallPassthrough(t *testing.T) {
	data := testImage(t, 200, 300)

	resized, err := ResizeImage(data, 1024)
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 300 {
		t.Errorf("small image must keep dimensions, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
