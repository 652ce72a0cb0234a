package database

import (
	"context"
)

// EmployeeReader provides read-only access to employees and their embeddings
type EmployeeReader interface {
	// Get retrieves an employee by ID, returns nil if not found
	Get(ctx context.Context, employeeID string) (*StoredEmployee, error)
	// List returns all employees ordered by ID
	List(ctx context.Context) ([]StoredEmployee, error)
	// Count returns the total number of employees
	Count(ctx context.Context) (int, error)
	// Embeddings retrieves all embeddings for an employee
	Embeddings(ctx context.Context, employeeID string) ([]StoredEmbedding, error)
	// AllEmbeddings returns every stored embedding, used to warm the
	// in-memory index on startup
	AllEmbeddings(ctx context.Context) ([]StoredEmbedding, error)
}

// EmployeeWriter provides write access to employees
type EmployeeWriter interface {
	EmployeeReader

	// Save stores an employee and all its embeddings in one transaction
	Save(ctx context.Context, employee StoredEmployee, embeddings []StoredEmbedding) error

	// Delete removes an employee, its embeddings and attendance history
	Delete(ctx context.Context, employeeID string) error
}

// AttendanceReader provides read-only access to attendance logs
type AttendanceReader interface {
	// ForDate returns all attendance rows for one date, joined with
	// employee details
	ForDate(ctx context.Context, date string) ([]ReportRow, error)
	// History returns attendance rows for a date range, optionally
	// filtered to one employee (empty employeeID means all)
	History(ctx context.Context, employeeID, from, to string) ([]ReportRow, error)
	// Stats summarizes attendance for one date
	Stats(ctx context.Context, date string) (*AttendanceStats, error)
	// Rows returns the raw attendance rows for a date, used to warm the
	// in-memory sequencer on startup
	Rows(ctx context.Context, date string) ([]AttendanceRow, error)
}

// AttendanceWriter provides write access to attendance logs
type AttendanceWriter interface {
	AttendanceReader

	// Upsert creates or updates the attendance row for
	// (employee_id, log_date)
	Upsert(ctx context.Context, row AttendanceRow) error
}
