package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// stubExtractor returns a canned embedding or error instead of calling the
// embedding service.
type stubExtractor struct {
	vec []float32
	err error
}

func (s *stubExtractor) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

// unitVec returns a unit basis vector with a 1 at the given position.
func unitVec(i int) []float32 {
	v := make([]float32, recognition.EmbeddingDim)
	v[i%recognition.EmbeddingDim] = 1
	return v
}

// newTestRecognizer builds an engine with default thresholds for handler tests.
func newTestRecognizer() *recognition.Recognizer {
	return recognition.NewRecognizer(
		recognition.NewStore(),
		recognition.NewIndex(0),
		recognition.Decider{Threshold: 0.6, AmbiguityMargin: 0.05},
		recognition.NewSequencer(nil),
	)
}

// enrollRequest builds a multipart enrollment request with fake image files.
func enrollRequest(t *testing.T, id, name, department string, imageCount int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("id", id)
	_ = writer.WriteField("name", name)
	_ = writer.WriteField("department", department)
	for i := 0; i < imageCount; i++ {
		part, err := writer.CreateFormFile("images", "face.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake-image-bytes")); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// recognizeRequest builds a multipart recognition request with a fake image.
func recognizeRequest(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "probe.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.WriteString(part, "fake-image-bytes"); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// newEmployeesFixture wires an employees handler against in-memory fakes.
func newEmployeesFixture(vec []float32) (*EmployeesHandler, *recognition.Recognizer, *mock.MockEmployeeRepository) {
	recognizer := newTestRecognizer()
	repo := mock.NewMockEmployeeRepository()
	handler := NewEmployeesHandler(recognizer, &stubExtractor{vec: vec}, repo, 50)
	return handler, recognizer, repo
}
