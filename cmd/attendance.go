package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Query and export attendance records",
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records as CSV",
	RunE:  runAttendanceExport,
}

var attendanceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the attendance summary for a date",
	RunE:  runAttendanceStats,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceExportCmd)
	attendanceCmd.AddCommand(attendanceStatsCmd)

	attendanceExportCmd.Flags().String("from", "", "Start date YYYY-MM-DD (default 30 days ago)")
	attendanceExportCmd.Flags().String("to", "", "End date YYYY-MM-DD (default today)")
	attendanceExportCmd.Flags().String("employee", "", "Filter to one employee ID")
	attendanceExportCmd.Flags().String("output", "", "Output file (default stdout)")

	attendanceStatsCmd.Flags().String("date", "", "Date YYYY-MM-DD (default today)")
}

func parseDateFlag(value, fallback string) (string, error) {
	if value == "" {
		return fallback, nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return value, nil
}

func writeAttendanceCSV(out *os.File, rows []database.ReportRow) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	if err := writer.Write([]string{
		"employee_id", "name", "department", "date",
		"in_time", "out_time", "duration_hours", "status",
	}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, row := range rows {
		outTime := ""
		if row.OutTime != nil {
			outTime = row.OutTime.Format("15:04:05")
		}
		duration := ""
		if row.DurationHours != nil {
			duration = strconv.FormatFloat(*row.DurationHours, 'f', 2, 64)
		}
		if err := writer.Write([]string{
			row.EmployeeID,
			row.Name,
			row.Department,
			row.LogDate,
			row.InTime.Format("15:04:05"),
			outTime,
			duration,
			row.Status,
		}); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	return nil
}

func runAttendanceExport(cmd *cobra.Command, args []string) error {
	now := time.Now()
	from, err := parseDateFlag(mustGetString(cmd, "from"), recognition.DateKey(now.AddDate(0, 0, -30)))
	if err != nil {
		return err
	}
	to, err := parseDateFlag(mustGetString(cmd, "to"), recognition.DateKey(now))
	if err != nil {
		return err
	}
	employeeID := mustGetString(cmd, "employee")
	output := mustGetString(cmd, "output")

	pool, _, attendance, err := connectRepositories()
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := attendance.History(context.Background(), employeeID, from, to)
	if err != nil {
		return fmt.Errorf("querying attendance: %w", err)
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	if err := writeAttendanceCSV(out, rows); err != nil {
		return err
	}
	if output != "" {
		fmt.Printf("Exported %d records to %s\n", len(rows), output)
	}
	return nil
}

func runAttendanceStats(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(mustGetString(cmd, "date"), recognition.DateKey(time.Now()))
	if err != nil {
		return err
	}

	pool, _, attendance, err := connectRepositories()
	if err != nil {
		return err
	}
	defer pool.Close()

	stats, err := attendance.Stats(context.Background(), date)
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}

	fmt.Printf("Attendance for %s\n", date)
	fmt.Printf("  Employees:    %d\n", stats.TotalEmployees)
	fmt.Printf("  Present:      %d\n", stats.PresentToday)
	fmt.Printf("  Checked out:  %d\n", stats.CheckedOut)
	fmt.Printf("  Avg duration: %.2f hours\n", stats.AvgDurationHours)
	return nil
}
