package server

import (
	"github.com/labstack/echo-contrib/echoprometheus"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (never rate limited)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echoprometheus.NewHandler())
	s.echo.GET("/version", s.handleVersion)

	api := s.echo.Group("/api", s.rateLimitMiddleware)

	api.POST("/patients", s.handleCreatePatient)
	api.GET("/patients/:id", s.handleGetPatient)

	api.POST("/ingest/multi-modal", s.handleIngest)

	api.POST("/analyze/:patientID", s.handleStartAnalysis)
	api.GET("/analyze/jobs/:jobID", s.handleGetJob)

	api.GET("/reports/patient/:patientID", s.handleListReports)
	api.POST("/narrate/report", s.handleNarrate)
	api.POST("/export/report/:reportID", s.handleExportReport)

	api.POST("/feedback/submit", s.handleSubmitFeedback)
	api.GET("/audit/trail/:patientID", s.handleAuditTrail)

	// Progress stream (no rate limit: one long-lived connection per job)
	s.echo.GET("/ws/analysis/:jobID", s.handleAnalysisStream)
}
