package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes(
	recognizer *recognition.Recognizer,
	extractor handlers.Extractor,
	employees database.EmployeeWriter,
	attendance database.AttendanceReader,
) {
	employeesHandler := handlers.NewEmployeesHandler(recognizer, extractor, employees, s.config.Recognition.MaxImagesPerIdentity)
	recognizeHandler := handlers.NewRecognizeHandler(recognizer, extractor)
	attendanceHandler := handlers.NewAttendanceHandler(attendance)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Employees
		r.Get("/employees", employeesHandler.List)
		r.Post("/employees", employeesHandler.Register)
		r.Get("/employees/{id}", employeesHandler.Get)
		r.Delete("/employees/{id}", employeesHandler.Delete)

		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/index/rebuild", recognizeHandler.RebuildIndex)

		// Attendance
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/attendance/history", attendanceHandler.History)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/attendance/stats", attendanceHandler.Stats)
	})
}
