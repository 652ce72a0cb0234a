package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// AttendanceHandler handles attendance query endpoints
type AttendanceHandler struct {
	repo database.AttendanceReader
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(repo database.AttendanceReader) *AttendanceHandler {
	return &AttendanceHandler{repo: repo}
}

// AttendanceResponse represents one attendance row in API responses
type AttendanceResponse struct {
	EmployeeID    string   `json:"employee_id"`
	Name          string   `json:"name"`
	Department    string   `json:"department"`
	Date          string   `json:"date"`
	Status        string   `json:"status"`
	InTime        string   `json:"in_time"`
	OutTime       *string  `json:"out_time"`
	DurationHours *float64 `json:"duration_hours"`
}

func toAttendanceResponse(row database.ReportRow) AttendanceResponse {
	resp := AttendanceResponse{
		EmployeeID:    row.EmployeeID,
		Name:          row.Name,
		Department:    row.Department,
		Date:          row.LogDate,
		Status:        row.Status,
		InTime:        row.InTime.Format(time.RFC3339),
		DurationHours: row.DurationHours,
	}
	if row.OutTime != nil {
		out := row.OutTime.Format(time.RFC3339)
		resp.OutTime = &out
	}
	return resp
}

// Today returns today's attendance rows
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	date := recognition.DateKey(time.Now())
	rows, err := h.repo.ForDate(r.Context(), date)
	if err != nil {
		log.Printf("Failed to query today's attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}

	out := make([]AttendanceResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAttendanceResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}

// historyRange parses from/to query parameters, defaulting to the last 30 days.
func historyRange(r *http.Request) (from, to string, err error) {
	now := time.Now()
	from = r.URL.Query().Get("from")
	to = r.URL.Query().Get("to")
	if from == "" {
		from = recognition.DateKey(now.AddDate(0, 0, -30))
	}
	if to == "" {
		to = recognition.DateKey(now)
	}
	for _, d := range []string{from, to} {
		if _, perr := time.Parse("2006-01-02", d); perr != nil {
			return "", "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
		}
	}
	if from > to {
		return "", "", fmt.Errorf("from %q is after to %q", from, to)
	}
	return from, to, nil
}

// History returns attendance rows for a date range, optionally filtered by
// employee_id
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	from, to, err := historyRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	employeeID := r.URL.Query().Get("employee_id")

	rows, err := h.repo.History(r.Context(), employeeID, from, to)
	if err != nil {
		log.Printf("Failed to query attendance history: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}

	out := make([]AttendanceResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAttendanceResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}

// Export streams attendance rows for a date range as CSV
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, to, err := historyRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	employeeID := r.URL.Query().Get("employee_id")

	rows, err := h.repo.History(r.Context(), employeeID, from, to)
	if err != nil {
		log.Printf("Failed to query attendance for export: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendance_%s_%s.csv", from, to))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	_ = writer.Write([]string{
		"employee_id", "name", "department", "date",
		"in_time", "out_time", "duration_hours", "status",
	})
	for _, row := range rows {
		outTime := ""
		if row.OutTime != nil {
			outTime = row.OutTime.Format("15:04:05")
		}
		duration := ""
		if row.DurationHours != nil {
			duration = strconv.FormatFloat(*row.DurationHours, 'f', 2, 64)
		}
		_ = writer.Write([]string{
			row.EmployeeID,
			row.Name,
			row.Department,
			row.LogDate,
			row.InTime.Format("15:04:05"),
			outTime,
			duration,
			row.Status,
		})
	}
}

// StatsResponse represents one day's attendance summary
type StatsResponse struct {
	Date             string  `json:"date"`
	TotalEmployees   int     `json:"total_employees"`
	PresentToday     int     `json:"present_today"`
	CheckedOut       int     `json:"checked_out"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
}

// Stats returns the attendance summary for a date (default today)
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = recognition.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
		return
	}

	stats, err := h.repo.Stats(r.Context(), date)
	if err != nil {
		log.Printf("Failed to query attendance stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query stats")
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Date:             date,
		TotalEmployees:   stats.TotalEmployees,
		PresentToday:     stats.PresentToday,
		CheckedOut:       stats.CheckedOut,
		AvgDurationHours: stats.AvgDurationHours,
	})
}
