package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/extract"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// RecognizeHandler handles the recognition endpoint
type RecognizeHandler struct {
	recognizer *recognition.Recognizer
	extractor  Extractor
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(recognizer *recognition.Recognizer, extractor Extractor) *RecognizeHandler {
	return &RecognizeHandler{
		recognizer: recognizer,
		extractor:  extractor,
	}
}

// RecognizeResponse represents the result of a recognition attempt
type RecognizeResponse struct {
	Recognized bool    `json:"recognized"`
	Verdict    string  `json:"verdict"`
	EmployeeID string  `json:"employee_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Department string  `json:"department,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status,omitempty"`
	Timestamp  string  `json:"timestamp"`
	Message    string  `json:"message"`
}

// Recognize matches an uploaded face image against enrolled employees and,
// on a confident match, toggles the employee's attendance for today.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	probe, err := h.extractor.Embed(r.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrNoFaceDetected):
			respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		case errors.Is(err, extract.ErrMultipleFacesDetected):
			respondError(w, http.StatusUnprocessableEntity, "multiple faces detected in image")
		default:
			log.Printf("Embedding extraction failed: %v", err)
			respondError(w, http.StatusBadGateway, "embedding service failed")
		}
		return
	}

	now := time.Now()
	result, err := h.recognizer.Recognize(r.Context(), probe, now)
	if err != nil {
		log.Printf("Recognition failed: %v", err)
		respondError(w, http.StatusInternalServerError, "recognition failed")
		return
	}

	resp := RecognizeResponse{
		Recognized: result.Recognized,
		Verdict:    result.Verdict.Kind.String(),
		EmployeeID: result.IdentityID,
		Confidence: result.Confidence,
		Status:     string(result.Status),
		Timestamp:  result.Timestamp.Format(time.RFC3339),
	}
	if result.Recognized {
		if identity, ok := h.recognizer.Store().Get(result.IdentityID); ok {
			resp.Name = identity.Metadata.Name
			resp.Department = identity.Metadata.Department
		}
	}
	resp.Message = recognizeMessage(result, resp.Name)
	respondJSON(w, http.StatusOK, resp)
}

// recognizeMessage builds the kiosk display line for a recognition result.
func recognizeMessage(result recognition.Result, name string) string {
	switch {
	case result.Recognized && result.Status == recognition.StatusIn:
		return "Welcome, " + name
	case result.Recognized && result.Status == recognition.StatusOut:
		return "Goodbye, " + name
	case result.Verdict.Kind == recognition.VerdictAmbiguous:
		return "Multiple close matches, please try again"
	default:
		return "Face not recognized"
	}
}

// RebuildIndex forces a full similarity index rebuild from the store.
func (h *RecognizeHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	h.recognizer.RebuildIndex()
	respondJSON(w, http.StatusOK, map[string]int{
		"identities": h.recognizer.Store().Count(),
		"records":    h.recognizer.Index().Len(),
	})
}
