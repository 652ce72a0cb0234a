package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extract"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// maxUploadSize limits the total size of an enrollment upload.
const maxUploadSize = 64 << 20 // 64 MB

// EmployeesHandler handles employee enrollment endpoints
type EmployeesHandler struct {
	recognizer *recognition.Recognizer
	extractor  Extractor
	repo       database.EmployeeWriter
	maxImages  int
}

// NewEmployeesHandler creates a new employees handler
func NewEmployeesHandler(recognizer *recognition.Recognizer, extractor Extractor, repo database.EmployeeWriter, maxImages int) *EmployeesHandler {
	return &EmployeesHandler{
		recognizer: recognizer,
		extractor:  extractor,
		repo:       repo,
		maxImages:  maxImages,
	}
}

// EmployeeResponse represents an employee in API responses
type EmployeeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Embeddings int    `json:"embeddings"`
	CreatedAt  string `json:"created_at"`
}

// List returns all enrolled employees. An optional ?q= parameter filters
// by name or department, ignoring case and diacritics.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repo.List(r.Context())
	if err != nil {
		log.Printf("Failed to list employees: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list employees")
		return
	}

	query := database.NormalizeName(r.URL.Query().Get("q"))
	out := make([]EmployeeResponse, 0, len(employees))
	for _, emp := range employees {
		if query != "" &&
			!strings.Contains(database.NormalizeName(emp.Name), query) &&
			!strings.Contains(database.NormalizeName(emp.Department), query) {
			continue
		}
		resp := EmployeeResponse{
			ID:         emp.ID,
			Name:       emp.Name,
			Department: emp.Department,
			CreatedAt:  emp.CreatedAt.Format(time.RFC3339),
		}
		if id, ok := h.recognizer.Store().Get(emp.ID); ok {
			resp.Embeddings = len(id.Records)
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns a single employee by ID
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	emp, err := h.repo.Get(r.Context(), employeeID)
	if err != nil {
		log.Printf("Failed to get employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to get employee")
		return
	}
	if emp == nil {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}

	resp := EmployeeResponse{
		ID:         emp.ID,
		Name:       emp.Name,
		Department: emp.Department,
		CreatedAt:  emp.CreatedAt.Format(time.RFC3339),
	}
	if id, ok := h.recognizer.Store().Get(emp.ID); ok {
		resp.Embeddings = len(id.Records)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Register enrolls a new employee from a multipart form with one or more
// face images. Every image must contain exactly one face.
func (h *EmployeesHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	employeeID := r.FormValue("id")
	name := r.FormValue("name")
	department := r.FormValue("department")
	if employeeID == "" || name == "" {
		respondError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if len(files) > h.maxImages {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many images: %d (max %d)", len(files), h.maxImages))
		return
	}

	embeddings := make([]recognition.NewEmbedding, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}

		vec, err := h.extractor.Embed(r.Context(), data)
		if err != nil {
			switch {
			case errors.Is(err, extract.ErrNoFaceDetected):
				respondError(w, http.StatusUnprocessableEntity,
					fmt.Sprintf("no face detected in %s", fh.Filename))
			case errors.Is(err, extract.ErrMultipleFacesDetected):
				respondError(w, http.StatusUnprocessableEntity,
					fmt.Sprintf("multiple faces detected in %s", fh.Filename))
			default:
				log.Printf("Embedding extraction failed: %v", err)
				respondError(w, http.StatusBadGateway, "embedding service failed")
			}
			return
		}
		embeddings = append(embeddings, recognition.NewEmbedding{
			Vector: vec,
			Source: recognition.SourceOriginal,
		})
	}

	if err := h.recognizer.Register(employeeID, recognition.Metadata{Name: name, Department: department}, embeddings); err != nil {
		switch {
		case errors.Is(err, recognition.ErrDuplicateIdentity):
			respondError(w, http.StatusConflict, "employee already registered")
		case errors.Is(err, recognition.ErrDimensionMismatch), errors.Is(err, recognition.ErrEmptyEmbeddingSet):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Failed to register employee %s: %v", sanitizeForLog(employeeID), err)
			respondError(w, http.StatusInternalServerError, "failed to register employee")
		}
		return
	}

	identity, _ := h.recognizer.Store().Get(employeeID)
	stored := make([]database.StoredEmbedding, 0, len(identity.Records))
	for _, rec := range identity.Records {
		stored = append(stored, database.StoredEmbedding{
			ID:         rec.ID,
			EmployeeID: employeeID,
			Embedding:  rec.Vector,
			Source:     string(rec.Source),
			Dim:        len(rec.Vector),
			CreatedAt:  rec.CreatedAt,
		})
	}

	err := h.repo.Save(r.Context(), database.StoredEmployee{
		ID:         employeeID,
		Name:       name,
		Department: department,
		CreatedAt:  identity.CreatedAt,
	}, stored)
	if err != nil {
		// Keep memory and database consistent.
		if rbErr := h.recognizer.Delete(employeeID); rbErr != nil {
			log.Printf("Rollback after failed save also failed for %s: %v", sanitizeForLog(employeeID), rbErr)
		}
		log.Printf("Failed to persist employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to persist employee")
		return
	}

	respondJSON(w, http.StatusCreated, EmployeeResponse{
		ID:         employeeID,
		Name:       name,
		Department: department,
		Embeddings: len(stored),
		CreatedAt:  identity.CreatedAt.Format(time.RFC3339),
	})
}

// Delete removes an employee and its embeddings. Finalized attendance rows
// are kept; the reporting joins hide them once the employee is gone
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	if err := h.recognizer.Delete(employeeID); err != nil {
		if errors.Is(err, recognition.ErrIdentityNotFound) {
			respondError(w, http.StatusNotFound, "employee not found")
			return
		}
		log.Printf("Failed to delete employee %s: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete employee")
		return
	}

	if err := h.repo.Delete(r.Context(), employeeID); err != nil {
		log.Printf("Failed to delete employee %s from database: %v", sanitizeForLog(employeeID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete employee")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": employeeID})
}
