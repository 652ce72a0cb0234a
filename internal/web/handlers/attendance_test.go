package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

func seededAttendance(t *testing.T) *mock.MockAttendanceRepository {
	t.Helper()
	employees := mock.NewMockEmployeeRepository()
	if err := employees.Save(context.Background(), database.StoredEmployee{
		ID:         "EMP001",
		Name:       "Jan Novak",
		Department: "Engineering",
		CreatedAt:  time.Now(),
	}, nil); err != nil {
		t.Fatalf("failed to seed employee: %v", err)
	}

	repo := mock.NewMockAttendanceRepository(employees)
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)
	dur := 9.0
	if err := repo.Upsert(context.Background(), database.AttendanceRow{
		EmployeeID:    "EMP001",
		LogDate:       "2026-03-02",
		Status:        "OUT",
		InTime:        in,
		OutTime:       &out,
		DurationHours: &dur,
	}); err != nil {
		t.Fatalf("failed to seed attendance: %v", err)
	}
	today := recognition.DateKey(time.Now())
	if err := repo.Upsert(context.Background(), database.AttendanceRow{
		EmployeeID: "EMP001",
		LogDate:    today,
		Status:     "IN",
		InTime:     time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed attendance: %v", err)
	}
	return repo
}

func TestAttendanceToday(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/today", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp []AttendanceResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 1 {
		t.Fatalf("expected 1 row for today, got %d", len(resp))
	}
	if resp[0].EmployeeID != "EMP001" || resp[0].Status != "IN" || resp[0].Name != "Jan Novak" {
		t.Errorf("unexpected row %+v", resp[0])
	}
}

func TestAttendanceHistory(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest(http.MethodGet,
		"/api/v1/attendance/history?from=2026-03-01&to=2026-03-31", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp []AttendanceResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 1 {
		t.Fatalf("expected 1 row in range, got %d", len(resp))
	}
	if resp[0].Date != "2026-03-02" || resp[0].Status != "OUT" {
		t.Errorf("unexpected row %+v", resp[0])
	}
	if resp[0].DurationHours == nil || *resp[0].DurationHours != 9.0 {
		t.Errorf("expected duration 9.0, got %v", resp[0].DurationHours)
	}
}

func TestAttendanceHistoryValidation(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	tests := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=03/02/2026"},
		{"inverted range", "?from=2026-03-10&to=2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.History(recorder, httptest.NewRequest(http.MethodGet,
				"/api/v1/attendance/history"+tt.query, nil))
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestAttendanceExportCSV(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	recorder := httptest.NewRecorder()
	handler.Export(recorder, httptest.NewRequest(http.MethodGet,
		"/api/v1/attendance/export?from=2026-03-01&to=2026-03-31", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	if ct := recorder.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := recorder.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance_2026-03-01_2026-03-31.csv") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != "employee_id,name,department,date,in_time,out_time,duration_hours,status" {
		t.Errorf("unexpected CSV header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "EMP001,Jan Novak,Engineering,2026-03-02,09:00:00,18:00:00,9.00,OUT") {
		t.Errorf("unexpected CSV row %q", lines[1])
	}
}

func TestAttendanceStats(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	recorder := httptest.NewRecorder()
	handler.Stats(recorder, httptest.NewRequest(http.MethodGet,
		"/api/v1/attendance/stats?date=2026-03-02", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp StatsResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Date != "2026-03-02" {
		t.Errorf("expected date echoed back, got %q", resp.Date)
	}
	if resp.TotalEmployees != 1 || resp.PresentToday != 1 || resp.CheckedOut != 1 {
		t.Errorf("unexpected stats %+v", resp)
	}
	if resp.AvgDurationHours != 9.0 {
		t.Errorf("expected avg duration 9.0, got %f", resp.AvgDurationHours)
	}
}

func TestAttendanceStatsBadDate(t *testing.T) {
	handler := NewAttendanceHandler(seededAttendance(t))

	recorder := httptest.NewRecorder()
	handler.Stats(recorder, httptest.NewRequest(http.MethodGet,
		"/api/v1/attendance/stats?date=tomorrow", nil))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}
