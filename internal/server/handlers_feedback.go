package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
)

type submitFeedbackRequest struct {
	ReportID     uuid.UUID   `json:"report_id"`
	DoctorID     string      `json:"doctor_id"`
	DoctorName   string      `json:"doctor_name"`
	FeedbackType string      `json:"feedback_type"`
	Transcript   string      `json:"transcript"`
	Corrections  string      `json:"corrections"`
	ChunkIDs     []uuid.UUID `json:"chunk_ids"`
}

func (s *Server) handleSubmitFeedback(c echo.Context) error {
	var req submitFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ReportID == uuid.Nil {
		return apperrors.ValidationError("report_id is required")
	}
	if strings.TrimSpace(req.DoctorID) == "" {
		return apperrors.ValidationError("doctor_id is required")
	}
	if req.FeedbackType == "" && strings.TrimSpace(req.Transcript) == "" {
		return apperrors.ValidationError("either feedback_type or transcript is required")
	}

	fb := &domain.DoctorFeedback{
		ReportID:    req.ReportID,
		DoctorID:    req.DoctorID,
		DoctorName:  req.DoctorName,
		Type:        domain.FeedbackType(req.FeedbackType),
		Transcript:  req.Transcript,
		Corrections: req.Corrections,
	}

	ctx := c.Request().Context()
	if err := s.deps.Feedback.Submit(ctx, fb, req.ChunkIDs); err != nil {
		switch {
		case errors.Is(err, domain.ErrFeedbackDebounced):
			return apperrors.ConflictError("feedback already submitted for this report").
				WithContext("report_id", req.ReportID.String()).
				WithContext("doctor_id", req.DoctorID)
		case errors.Is(err, domain.ErrReportNotFound):
			return apperrors.NotFoundError("report not found").WithContext("report_id", req.ReportID.String())
		default:
			return apperrors.InternalError("failed to record feedback", err).WithContext("report_id", req.ReportID.String())
		}
	}

	response := map[string]any{
		"status":        "recorded",
		"feedback_type": fb.Type,
	}
	if stats, err := s.deps.Feedback.Accuracy(ctx, req.ReportID); err != nil {
		slog.Warn("Failed to compute feedback accuracy", "report_id", req.ReportID, "error", err)
	} else {
		response["accuracy"] = stats
	}

	return c.JSON(http.StatusCreated, response)
}
