package database

import (
	"context"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepo persists doctor feedback on generated reports.
type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

var _ domain.FeedbackRepository = (*FeedbackRepo)(nil)

func (r *FeedbackRepo) Save(ctx context.Context, feedback *domain.DoctorFeedback) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("feedback_save").Observe(time.Since(start).Seconds()) }()

	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO feedback (id, report_id, doctor_id, doctor_name, feedback_type, transcript, corrections, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, feedback.ID, feedback.ReportID, feedback.DoctorID, feedback.DoctorName,
		feedback.Type, feedback.Transcript, feedback.Corrections, feedback.CreatedAt)

	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("feedback_save").Inc()
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepo) ListByReport(ctx context.Context, reportID uuid.UUID) ([]domain.DoctorFeedback, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_id, doctor_id, doctor_name, feedback_type, transcript, corrections, created_at
		FROM feedback
		WHERE report_id = $1
		ORDER BY created_at
	`, reportID)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("feedback_list").Inc()
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var feedbacks []domain.DoctorFeedback
	for rows.Next() {
		var f domain.DoctorFeedback
		if err := rows.Scan(&f.ID, &f.ReportID, &f.DoctorID, &f.DoctorName, &f.Type, &f.Transcript, &f.Corrections, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}
