package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extract"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Manage enrolled employees",
}

var employeeRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Enroll an employee from a directory of face photos",
	Long: `Enroll an employee from a directory of face photos.
Every photo must contain exactly one face. Embeddings are extracted via
the embedding service and stored in PostgreSQL; a running server picks
them up on the next index rebuild or restart.`,
	RunE: runEmployeeRegister,
}

var employeeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled employees",
	RunE:  runEmployeeList,
}

var employeeDeleteCmd = &cobra.Command{
	Use:   "delete <employee-id>",
	Short: "Remove an employee and its embeddings (attendance history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeeDelete,
}

func init() {
	rootCmd.AddCommand(employeeCmd)
	employeeCmd.AddCommand(employeeRegisterCmd)
	employeeCmd.AddCommand(employeeListCmd)
	employeeCmd.AddCommand(employeeDeleteCmd)

	employeeRegisterCmd.Flags().String("id", "", "Employee ID (required)")
	employeeRegisterCmd.Flags().String("name", "", "Employee name (required)")
	employeeRegisterCmd.Flags().String("department", "", "Employee department")
	employeeRegisterCmd.Flags().String("images", "", "Directory with face photos (required)")
	_ = employeeRegisterCmd.MarkFlagRequired("id")
	_ = employeeRegisterCmd.MarkFlagRequired("name")
	_ = employeeRegisterCmd.MarkFlagRequired("images")
}

// connectRepositories opens the database pool and returns the repositories.
func connectRepositories() (*postgres.Pool, *postgres.EmployeeRepository, *postgres.AttendanceRepository, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pool, postgres.NewEmployeeRepository(pool), postgres.NewAttendanceRepository(pool), nil
}

// listImageFiles returns the image files in a directory, sorted by name.
func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func runEmployeeRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	employeeID := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")
	department := mustGetString(cmd, "department")
	imagesDir := mustGetString(cmd, "images")

	files, err := listImageFiles(imagesDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", imagesDir)
	}
	if len(files) > cfg.Recognition.MaxImagesPerIdentity {
		return fmt.Errorf("too many images: %d (max %d)", len(files), cfg.Recognition.MaxImagesPerIdentity)
	}

	pool, employees, _, err := connectRepositories()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	if existing, err := employees.Get(ctx, employeeID); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("employee %s already registered", employeeID)
	}

	extractor, err := extract.NewClient(cfg.Embedding.URL)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}

	now := time.Now()
	stored := make([]database.StoredEmbedding, 0, len(files))
	bar := progressbar.Default(int64(len(files)), "Extracting embeddings")
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		vec, err := extractor.Embed(ctx, data)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", filepath.Base(file), err)
		}
		stored = append(stored, database.StoredEmbedding{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			Embedding:  recognition.Normalize(vec),
			Source:     string(recognition.SourceOriginal),
			Dim:        recognition.EmbeddingDim,
			CreatedAt:  now,
		})
		_ = bar.Add(1)
	}

	err = employees.Save(ctx, database.StoredEmployee{
		ID:         employeeID,
		Name:       name,
		Department: department,
		CreatedAt:  now,
	}, stored)
	if err != nil {
		return fmt.Errorf("saving employee: %w", err)
	}

	fmt.Printf("Registered %s (%s) with %d embeddings\n", employeeID, name, len(stored))
	return nil
}

func runEmployeeList(cmd *cobra.Command, args []string) error {
	pool, employees, _, err := connectRepositories()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	all, err := employees.List(ctx)
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No employees registered")
		return nil
	}
	for _, emp := range all {
		embs, err := employees.Embeddings(ctx, emp.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %-30s %-20s %d embeddings\n", emp.ID, emp.Name, emp.Department, len(embs))
	}
	return nil
}

func runEmployeeDelete(cmd *cobra.Command, args []string) error {
	pool, employees, _, err := connectRepositories()
	if err != nil {
		return err
	}
	defer pool.Close()

	employeeID := args[0]
	if err := employees.Delete(context.Background(), employeeID); err != nil {
		return fmt.Errorf("deleting employee %s: %w", employeeID, err)
	}
	fmt.Printf("Deleted %s\n", employeeID)
	return nil
}
