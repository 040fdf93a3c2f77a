package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
)

type createPatientRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	Gender         string `json:"gender"`
	Contact        string `json:"contact"`
	MedicalHistory string `json:"medical_history"`
}

func (r createPatientRequest) validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", r.DateOfBirth); err != nil {
			return fmt.Errorf("date_of_birth must be YYYY-MM-DD")
		}
	}
	return nil
}

func (s *Server) handleCreatePatient(c echo.Context) error {
	var req createPatientRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	patient := &domain.PatientRecord{
		ID:             uuid.New(),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Contact:        req.Contact,
		MedicalHistory: req.MedicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.deps.Patients.Create(ctx, patient); err != nil {
		return apperrors.InternalError("failed to create patient", err)
	}

	s.recordAudit(c, patient.ID, "patient_registered", map[string]any{
		"patient_name": patient.FullName(),
	})

	return c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleGetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid patient ID").WithContext("id", c.Param("id"))
	}

	patient, err := s.deps.Patients.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			return apperrors.NotFoundError("patient not found").WithContext("patient_id", id.String())
		}
		return apperrors.InternalError("failed to load patient", err).WithContext("patient_id", id.String())
	}

	return c.JSON(http.StatusOK, patient)
}

// recordAudit writes a compliance entry best-effort. Audit failures are
// logged, never surfaced to the caller.
func (s *Server) recordAudit(c echo.Context, patientID uuid.UUID, operation string, details map[string]any) {
	entry := &domain.AuditEntry{
		PatientID: patientID,
		Operation: operation,
		Actor:     c.RealIP(),
		Details:   details,
	}
	if err := s.deps.Audit.Record(c.Request().Context(), entry); err != nil {
		slog.Warn("Failed to record audit entry", "operation", operation, "patient_id", patientID, "error", err)
	}
}
