package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Upsert creates or updates the attendance row for (employee_id, log_date)
func (r *AttendanceRepository) Upsert(ctx context.Context, row database.AttendanceRow) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_logs (employee_id, log_date, status, in_time, out_time, duration_hours)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, log_date) DO UPDATE SET
			status = EXCLUDED.status,
			in_time = EXCLUDED.in_time,
			out_time = EXCLUDED.out_time,
			duration_hours = EXCLUDED.duration_hours
	`, row.EmployeeID, row.LogDate, row.Status, row.InTime, row.OutTime, row.DurationHours)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// RecordDay persists a day record transition. Satisfies the sequencer's
// journal so every in-memory toggle is written through.
func (r *AttendanceRepository) RecordDay(ctx context.Context, rec recognition.DayRecord) error {
	return r.Upsert(ctx, database.AttendanceRow{
		EmployeeID:    rec.IdentityID,
		LogDate:       rec.Date,
		Status:        string(rec.Status),
		InTime:        rec.InTime,
		OutTime:       rec.OutTime,
		DurationHours: rec.Duration,
	})
}

const reportColumns = `
	a.employee_id, e.name, e.department,
	to_char(a.log_date, 'YYYY-MM-DD'), a.status,
	a.in_time, a.out_time, a.duration_hours
`

// ForDate returns all attendance rows for one date, joined with employee details
func (r *AttendanceRepository) ForDate(ctx context.Context, date string) ([]database.ReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM attendance_logs a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.log_date = $1
		ORDER BY a.in_time
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance for date: %w", err)
	}
	defer rows.Close()

	return scanReportRows(rows)
}

// History returns attendance rows for a date range, optionally filtered to
// one employee (empty employeeID means all)
func (r *AttendanceRepository) History(ctx context.Context, employeeID, from, to string) ([]database.ReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM attendance_logs a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.log_date BETWEEN $1 AND $2
		  AND ($3 = '' OR a.employee_id = $3)
		ORDER BY a.log_date, a.employee_id
	`, from, to, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query attendance history: %w", err)
	}
	defer rows.Close()

	return scanReportRows(rows)
}

// Stats summarizes attendance for one date
func (r *AttendanceRepository) Stats(ctx context.Context, date string) (*database.AttendanceStats, error) {
	var stats database.AttendanceStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM employees),
			COUNT(a.*),
			COUNT(a.*) FILTER (WHERE a.status = 'OUT'),
			COALESCE(AVG(a.duration_hours) FILTER (WHERE a.duration_hours IS NOT NULL), 0)
		FROM attendance_logs a
		WHERE a.log_date = $1
	`, date).Scan(
		&stats.TotalEmployees,
		&stats.PresentToday,
		&stats.CheckedOut,
		&stats.AvgDurationHours,
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance stats: %w", err)
	}
	return &stats, nil
}

// Rows returns the raw attendance rows for a date, used to warm the
// in-memory sequencer on startup
func (r *AttendanceRepository) Rows(ctx context.Context, date string) ([]database.AttendanceRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT employee_id, to_char(log_date, 'YYYY-MM-DD'), status, in_time, out_time, duration_hours
		FROM attendance_logs
		WHERE log_date = $1
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance rows: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRow
	for rows.Next() {
		var row database.AttendanceRow
		if err := rows.Scan(&row.EmployeeID, &row.LogDate, &row.Status, &row.InTime, &row.OutTime, &row.DurationHours); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return out, nil
}

func scanReportRows(rows *sql.Rows) ([]database.ReportRow, error) {
	var out []database.ReportRow
	for rows.Next() {
		var row database.ReportRow
		if err := rows.Scan(
			&row.EmployeeID, &row.Name, &row.Department,
			&row.LogDate, &row.Status,
			&row.InTime, &row.OutTime, &row.DurationHours,
		); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return out, nil
}
