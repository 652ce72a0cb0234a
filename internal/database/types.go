package database

import (
	"time"
)

// StoredEmployee represents an enrolled employee row.
type StoredEmployee struct {
	ID         string
	Name       string
	Department string
	CreatedAt  time.Time
}

// StoredEmbedding represents a face embedding persisted for an employee.
type StoredEmbedding struct {
	ID         string
	EmployeeID string
	Embedding  []float32
	Source     string // original or augmented
	Dim        int
	CreatedAt  time.Time
}

// AttendanceRow represents one employee's attendance for one calendar day.
// A row is created on check-in and updated in place on check-out.
type AttendanceRow struct {
	EmployeeID    string
	LogDate       string // YYYY-MM-DD
	Status        string // IN or OUT
	InTime        time.Time
	OutTime       *time.Time
	DurationHours *float64
}

// ReportRow is an attendance row joined with employee details, used for
// history listings and CSV export.
type ReportRow struct {
	EmployeeID    string
	Name          string
	Department    string
	LogDate       string
	Status        string
	InTime        time.Time
	OutTime       *time.Time
	DurationHours *float64
}

// AttendanceStats summarizes one day of attendance.
type AttendanceStats struct {
	TotalEmployees   int
	PresentToday     int
	CheckedOut       int
	AvgDurationHours float64
}
