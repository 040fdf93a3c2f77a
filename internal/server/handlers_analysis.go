package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/ingestion"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
	"github.com/RAJARYANSINGH0059/Convolve/internal/pipeline"
)

type ingestRequest struct {
	PatientID uuid.UUID        `json:"patient_id"`
	Items     []ingestion.Item `json:"items"`
}

func (s *Server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.PatientID == uuid.Nil {
		return apperrors.ValidationError("patient_id is required")
	}
	if len(req.Items) == 0 {
		return apperrors.ValidationError("at least one item is required")
	}

	ctx := c.Request().Context()
	if _, err := s.deps.Patients.GetByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			return apperrors.NotFoundError("patient not found").WithContext("patient_id", req.PatientID.String())
		}
		return apperrors.InternalError("failed to load patient", err)
	}

	result, err := s.deps.Ingestor.Ingest(ctx, req.PatientID, req.Items)
	if err != nil {
		return apperrors.InternalError("ingestion failed", err).WithContext("patient_id", req.PatientID.String())
	}

	// Indexing failures degrade retrieval quality but never fail the
	// ingestion itself.
	if s.deps.Indexer != nil {
		if _, err := s.deps.Indexer.Index(ctx, result); err != nil {
			slog.Warn("Failed to index ingested data", "patient_id", req.PatientID, "error", err)
		}
	}

	s.recordAudit(c, req.PatientID, "data_ingested", map[string]any{
		"accepted": result.TotalItems,
		"rejected": result.Rejected,
		"chunks":   result.ChunksStored,
	})

	return c.JSON(http.StatusOK, result)
}

type analyzeRequest struct {
	ClinicalContext string                                      `json:"clinical_context"`
	VitalSigns      map[string]float64                          `json:"vital_signs,omitempty"`
	LabValues       map[string]float64                          `json:"lab_values,omitempty"`
	ModalityResults map[domain.Modality][]domain.ModalityResult `json:"modality_results,omitempty"`
}

func (s *Server) handleStartAnalysis(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return apperrors.ValidationError("invalid patient ID").WithContext("id", c.Param("patientID"))
	}

	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ClinicalContext == "" {
		return apperrors.ValidationError("clinical_context is required")
	}

	job, err := s.deps.Analysis.Start(c.Request().Context(), pipeline.Request{
		PatientID:       patientID,
		ClinicalContext: req.ClinicalContext,
		ModalityResults: req.ModalityResults,
		VitalSigns:      req.VitalSigns,
		LabValues:       req.LabValues,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			return apperrors.NotFoundError("patient not found").WithContext("patient_id", patientID.String())
		}
		if errors.Is(err, domain.ErrAnalysisBacklog) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "analysis queue is full, retry later")
		}
		return apperrors.InternalError("failed to start analysis", err).WithContext("patient_id", patientID.String())
	}

	return c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetJob(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		return apperrors.ValidationError("invalid job ID").WithContext("id", c.Param("jobID"))
	}

	job, err := s.deps.Analysis.Job(c.Request().Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return apperrors.NotFoundError("analysis job not found").WithContext("job_id", jobID.String())
		}
		return apperrors.InternalError("failed to load job", err).WithContext("job_id", jobID.String())
	}

	return c.JSON(http.StatusOK, job)
}
