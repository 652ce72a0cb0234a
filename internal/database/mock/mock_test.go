package mock

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestAttendanceSurvivesEmployeeDelete(t *testing.T) {
	ctx := context.Background()
	employees := NewMockEmployeeRepository()
	attendance := NewMockAttendanceRepository(employees)

	err := employees.Save(ctx, database.StoredEmployee{
		ID:   "EMP001",
		Name: "Jan Novak",
	}, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	inTime := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	outTime := inTime.Add(9 * time.Hour)
	dur := 9.0
	err = attendance.Upsert(ctx, database.AttendanceRow{
		EmployeeID:    "EMP001",
		LogDate:       "2026-03-02",
		Status:        "OUT",
		InTime:        inTime,
		OutTime:       &outTime,
		DurationHours: &dur,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := employees.Delete(ctx, "EMP001"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// The finalized row remains in storage.
	rows, err := attendance.Rows(ctx, "2026-03-02")
	if err != nil {
		t.Fatalf("rows failed: %v", err)
	}
	if len(rows) != 1 || rows[0].DurationHours == nil || *rows[0].DurationHours != 9.0 {
		t.Errorf("attendance row must survive employee deletion, got %+v", rows)
	}

	// Reports hide it, like the SQL employee join.
	report, err := attendance.ForDate(ctx, "2026-03-02")
	if err != nil {
		t.Fatalf("for date failed: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("deleted employee must be hidden from reports, got %+v", report)
	}
	history, err := attendance.History(ctx, "", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("deleted employee must be hidden from history, got %+v", history)
	}
}
