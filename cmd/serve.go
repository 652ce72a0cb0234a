package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extract"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the attendance API server.
On startup all enrolled embeddings are loaded from PostgreSQL into the
in-memory similarity index and today's attendance state is restored, so
recognition works immediately after a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT env)")
}

// buildRecognizer loads the enrolled population from the database into a
// fresh in-memory engine.
func buildRecognizer(ctx context.Context, cfg *config.Config, employees database.EmployeeReader, attendance *postgres.AttendanceRepository) (*recognition.Recognizer, error) {
	recognizer := recognition.NewRecognizer(
		recognition.NewStore(),
		recognition.NewIndex(cfg.Recognition.RebuildRatio),
		recognition.Decider{
			Threshold:       cfg.Recognition.Threshold,
			AmbiguityMargin: cfg.Recognition.AmbiguityMargin,
		},
		recognition.NewSequencer(attendance),
	)

	identities, err := loadIdentities(ctx, employees)
	if err != nil {
		return nil, err
	}
	recognizer.Store().Load(identities)
	recognizer.RebuildIndex()

	// Restore today's attendance so restarts don't double-toggle.
	today := recognition.DateKey(time.Now())
	rows, err := attendance.Rows(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("loading today's attendance: %w", err)
	}
	records := make([]recognition.DayRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recognition.DayRecord{
			IdentityID: row.EmployeeID,
			Date:       row.LogDate,
			Status:     recognition.DayStatus(row.Status),
			InTime:     row.InTime,
			OutTime:    row.OutTime,
			Duration:   row.DurationHours,
		})
	}
	recognizer.Sequencer().Warm(records)

	fmt.Printf("Loaded %d employees, %d embeddings, %d open attendance records\n",
		len(identities), recognizer.Index().Len(), len(records))
	return recognizer, nil
}

// loadIdentities joins employees with their stored embeddings.
func loadIdentities(ctx context.Context, employees database.EmployeeReader) ([]recognition.Identity, error) {
	all, err := employees.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading employees: %w", err)
	}
	embeddings, err := employees.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}

	byEmployee := make(map[string][]recognition.EmbeddingRecord)
	for _, emb := range embeddings {
		byEmployee[emb.EmployeeID] = append(byEmployee[emb.EmployeeID], recognition.EmbeddingRecord{
			ID:        emb.ID,
			Vector:    emb.Embedding,
			Source:    recognition.Source(emb.Source),
			CreatedAt: emb.CreatedAt,
		})
	}

	out := make([]recognition.Identity, 0, len(all))
	for _, emp := range all {
		out = append(out, recognition.Identity{
			ID: emp.ID,
			Metadata: recognition.Metadata{
				Name:       emp.Name,
				Department: emp.Department,
			},
			Records:   byEmployee[emp.ID],
			CreatedAt: emp.CreatedAt,
		})
	}
	return out, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	employees := postgres.NewEmployeeRepository(pool)
	attendance := postgres.NewAttendanceRepository(pool)

	recognizer, err := buildRecognizer(ctx, cfg, employees, attendance)
	if err != nil {
		return err
	}

	extractor, err := extract.NewClient(cfg.Embedding.URL)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	if err := extractor.Healthy(ctx); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Printf("Recognition will fail until the embedding service is up\n")
	}

	server := web.NewServer(cfg, recognizer, extractor, employees, attendance)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://0.0.0.0:%d\n", cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
