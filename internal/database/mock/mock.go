// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockEmployeeRepository is a mock implementation of database.EmployeeWriter
type MockEmployeeRepository struct {
	mu         sync.RWMutex
	employees  map[string]*database.StoredEmployee
	embeddings map[string][]database.StoredEmbedding

	// Error injection
	GetError    error
	ListError   error
	CountError  error
	SaveError   error
	DeleteError error
}

// NewMockEmployeeRepository creates a new mock employee repository
func NewMockEmployeeRepository() *MockEmployeeRepository {
	return &MockEmployeeRepository{
		employees:  make(map[string]*database.StoredEmployee),
		embeddings: make(map[string][]database.StoredEmbedding),
	}
}

// Get retrieves an employee by ID
func (m *MockEmployeeRepository) Get(ctx context.Context, employeeID string) (*database.StoredEmployee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return nil, nil
	}
	cp := *emp
	return &cp, nil
}

// List returns all employees ordered by ID
func (m *MockEmployeeRepository) List(ctx context.Context) ([]database.StoredEmployee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredEmployee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, *emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the total number of employees
func (m *MockEmployeeRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.employees), nil
}

// Embeddings retrieves all embeddings for an employee
func (m *MockEmployeeRepository) Embeddings(ctx context.Context, employeeID string) ([]database.StoredEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.StoredEmbedding(nil), m.embeddings[employeeID]...), nil
}

// AllEmbeddings returns every stored embedding
func (m *MockEmployeeRepository) AllEmbeddings(ctx context.Context) ([]database.StoredEmbedding, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.embeddings))
	for id := range m.embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []database.StoredEmbedding
	for _, id := range ids {
		out = append(out, m.embeddings[id]...)
	}
	return out, nil
}

// Save stores an employee and its embeddings
func (m *MockEmployeeRepository) Save(ctx context.Context, employee database.StoredEmployee, embeddings []database.StoredEmbedding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.employees[employee.ID]; exists {
		return fmt.Errorf("employee %q already exists", employee.ID)
	}
	m.employees[employee.ID] = &employee
	m.embeddings[employee.ID] = append([]database.StoredEmbedding(nil), embeddings...)
	return nil
}

// Delete removes an employee and its embeddings
func (m *MockEmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.employees[employeeID]; !exists {
		return fmt.Errorf("employee %q not found", employeeID)
	}
	delete(m.employees, employeeID)
	delete(m.embeddings, employeeID)
	return nil
}

// MockAttendanceRepository is a mock implementation of database.AttendanceWriter
type MockAttendanceRepository struct {
	mu        sync.RWMutex
	rows      map[string]*database.AttendanceRow // employeeID + "\x00" + date
	employees *MockEmployeeRepository            // for joined report rows, may be nil

	// Error injection
	UpsertError error
	QueryError  error
}

// NewMockAttendanceRepository creates a new mock attendance repository.
// The employee repository is used to fill in names for report rows.
func NewMockAttendanceRepository(employees *MockEmployeeRepository) *MockAttendanceRepository {
	return &MockAttendanceRepository{
		rows:      make(map[string]*database.AttendanceRow),
		employees: employees,
	}
}

// Upsert creates or updates the attendance row for (employee_id, log_date)
func (m *MockAttendanceRepository) Upsert(ctx context.Context, row database.AttendanceRow) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.EmployeeID+"\x00"+row.LogDate] = &row
	return nil
}

// ForDate returns all attendance rows for one date
func (m *MockAttendanceRepository) ForDate(ctx context.Context, date string) ([]database.ReportRow, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.ReportRow
	for _, row := range m.rows {
		if row.LogDate != date {
			continue
		}
		if rep, ok := m.reportRow(ctx, row); ok {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// History returns attendance rows for a date range
func (m *MockAttendanceRepository) History(ctx context.Context, employeeID, from, to string) ([]database.ReportRow, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.ReportRow
	for _, row := range m.rows {
		if row.LogDate < from || row.LogDate > to {
			continue
		}
		if employeeID != "" && row.EmployeeID != employeeID {
			continue
		}
		if rep, ok := m.reportRow(ctx, row); ok {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LogDate != out[j].LogDate {
			return out[i].LogDate < out[j].LogDate
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// Stats summarizes attendance for one date
func (m *MockAttendanceRepository) Stats(ctx context.Context, date string) (*database.AttendanceStats, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := database.AttendanceStats{}
	if m.employees != nil {
		stats.TotalEmployees, _ = m.employees.Count(ctx)
	}
	var durSum float64
	var durCount int
	for _, row := range m.rows {
		if row.LogDate != date {
			continue
		}
		stats.PresentToday++
		if row.Status == "OUT" {
			stats.CheckedOut++
		}
		if row.DurationHours != nil {
			durSum += *row.DurationHours
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDurationHours = durSum / float64(durCount)
	}
	return &stats, nil
}

// Rows returns the raw attendance rows for a date
func (m *MockAttendanceRepository) Rows(ctx context.Context, date string) ([]database.AttendanceRow, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceRow
	for _, row := range m.rows {
		if row.LogDate == date {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// reportRow joins the row with its employee, mirroring the SQL reporting
// queries: a row whose employee was deleted is kept in storage but hidden
// from reports.
func (m *MockAttendanceRepository) reportRow(ctx context.Context, row *database.AttendanceRow) (database.ReportRow, bool) {
	out := database.ReportRow{
		EmployeeID:    row.EmployeeID,
		LogDate:       row.LogDate,
		Status:        row.Status,
		InTime:        row.InTime,
		OutTime:       row.OutTime,
		DurationHours: row.DurationHours,
	}
	if m.employees != nil {
		emp, _ := m.employees.Get(ctx, row.EmployeeID)
		if emp == nil {
			return database.ReportRow{}, false
		}
		out.Name = emp.Name
		out.Department = emp.Department
	}
	return out, true
}
