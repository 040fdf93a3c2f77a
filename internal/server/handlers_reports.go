package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
	"github.com/RAJARYANSINGH0059/Convolve/internal/narrator"
)

func (s *Server) handleListReports(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return apperrors.ValidationError("invalid patient ID").WithContext("id", c.Param("patientID"))
	}

	reports, err := s.deps.Reports.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperrors.InternalError("failed to list reports", err).WithContext("patient_id", patientID.String())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"patient_id": patientID,
		"count":      len(reports),
		"reports":    reports,
	})
}

type narrateRequest struct {
	ReportID      uuid.UUID `json:"report_id"`
	Language      string    `json:"language"`
	NarrativeType string    `json:"narrative_type"`
}

func (s *Server) handleNarrate(c echo.Context) error {
	var req narrateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ReportID == uuid.Nil {
		return apperrors.ValidationError("report_id is required")
	}
	if req.Language == "" {
		req.Language = "en"
	}
	narrativeType := narrator.PatientFriendly
	if req.NarrativeType == string(narrator.MedicalProfessional) {
		narrativeType = narrator.MedicalProfessional
	}

	ctx := c.Request().Context()
	report, err := s.deps.ReportCache.GetReport(ctx, req.ReportID)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return apperrors.NotFoundError("report not found").WithContext("report_id", req.ReportID.String())
		}
		return apperrors.InternalError("failed to load report", err).WithContext("report_id", req.ReportID.String())
	}

	// A report flagged for doctor review must not reach the patient
	// until a clinician has cleared it. Professionals still see it.
	if report.NeedsReview && narrativeType == narrator.PatientFriendly {
		return apperrors.UnsafeError("report is pending clinical review and cannot be narrated for patients").
			WithContext("report_id", req.ReportID.String())
	}

	// The summary enriches the professional narrative but its absence
	// never blocks narration.
	summary, err := s.deps.Reports.GetSummary(ctx, req.ReportID)
	if err != nil && !errors.Is(err, domain.ErrReportNotFound) {
		slog.Warn("Failed to load summary for narration", "report_id", req.ReportID, "error", err)
	}

	narration, err := s.deps.Narrator.Narrate(ctx, report, summary, req.Language, narrativeType)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedLanguage) {
			return apperrors.ValidationError("unsupported narration language").WithContext("language", req.Language)
		}
		return apperrors.ExternalError("failed to render narrative", err).WithContext("report_id", req.ReportID.String())
	}

	return c.JSON(http.StatusOK, narration)
}

func (s *Server) handleExportReport(c echo.Context) error {
	reportID, err := uuid.Parse(c.Param("reportID"))
	if err != nil {
		return apperrors.ValidationError("invalid report ID").WithContext("id", c.Param("reportID"))
	}

	ctx := c.Request().Context()
	report, err := s.deps.ReportCache.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return apperrors.NotFoundError("report not found").WithContext("report_id", reportID.String())
		}
		return apperrors.InternalError("failed to load report", err).WithContext("report_id", reportID.String())
	}

	s.recordAudit(c, report.PatientID, "report_exported", map[string]any{
		"report_id": reportID.String(),
	})

	return c.JSON(http.StatusOK, map[string]any{
		"report_id": reportID,
		"format":    "text",
		"document":  narrator.ExportDocument(report),
	})
}

func (s *Server) handleAuditTrail(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return apperrors.ValidationError("invalid patient ID").WithContext("id", c.Param("patientID"))
	}

	entries, err := s.deps.Audit.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperrors.InternalError("failed to load audit trail", err).WithContext("patient_id", patientID.String())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"patient_id": patientID,
		"count":      len(entries),
		"entries":    entries,
	})
}
