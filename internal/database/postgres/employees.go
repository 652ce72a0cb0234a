package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeeRepository provides PostgreSQL-backed employee and embedding storage
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new PostgreSQL employee repository
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Get retrieves an employee by ID, returns nil if not found
func (r *EmployeeRepository) Get(ctx context.Context, employeeID string) (*database.StoredEmployee, error) {
	query := `
		SELECT id, name, department, created_at
		FROM employees
		WHERE id = $1
	`

	var emp database.StoredEmployee
	err := r.pool.QueryRow(ctx, query, employeeID).Scan(
		&emp.ID,
		&emp.Name,
		&emp.Department,
		&emp.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &emp, nil
}

// List returns all employees ordered by ID
func (r *EmployeeRepository) List(ctx context.Context) ([]database.StoredEmployee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, department, created_at
		FROM employees
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []database.StoredEmployee
	for rows.Next() {
		var emp database.StoredEmployee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}

// Count returns the total number of employees
func (r *EmployeeRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM employees").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return count, nil
}

// Embeddings retrieves all embeddings for an employee
func (r *EmployeeRepository) Embeddings(ctx context.Context, employeeID string) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, embedding, source, dim, created_at
		FROM embeddings
		WHERE employee_id = $1
		ORDER BY created_at
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// AllEmbeddings returns every stored embedding, used to warm the in-memory
// index on startup
func (r *EmployeeRepository) AllEmbeddings(ctx context.Context) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, embedding, source, dim, created_at
		FROM embeddings
		ORDER BY employee_id, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query all embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// Save stores an employee and all its embeddings in one transaction
func (r *EmployeeRepository) Save(ctx context.Context, employee database.StoredEmployee, embeddings []database.StoredEmbedding) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO employees (id, name, department, created_at)
		VALUES ($1, $2, $3, $4)
	`, employee.ID, employee.Name, employee.Department, employee.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}

	for _, emb := range embeddings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO embeddings (id, employee_id, embedding, source, dim, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, emb.ID, employee.ID, pgvector.NewVector(emb.Embedding), emb.Source, len(emb.Embedding), emb.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit employee save: %w", err)
	}
	return nil
}

// Delete removes an employee; embeddings cascade. Attendance rows are kept:
// the reporting joins hide them once the employee row is gone
func (r *EmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM employees WHERE id = $1", employeeID)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete employee rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanEmbeddings(rows *sql.Rows) ([]database.StoredEmbedding, error) {
	var out []database.StoredEmbedding
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.EmployeeID, &vec, &emb.Source, &emb.Dim, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		emb.Embedding = vec.Slice()
		out = append(out, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return out, nil
}
