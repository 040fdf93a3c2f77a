package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepo persists consolidated reports and CIS documents as JSONB.
// The pipeline writes a report once; a feedback rescan may later
// re-save it with a discounted confidence and the review flag set.
type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

var _ domain.ReportRepository = (*ReportRepo)(nil)

func (r *ReportRepo) SaveReport(ctx context.Context, report *domain.ConsolidatedReport) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("report_save").Observe(time.Since(start).Seconds()) }()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reports (id, patient_id, payload, severity, confidence, needs_review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			confidence = EXCLUDED.confidence,
			needs_review = EXCLUDED.needs_review
	`, report.ID, report.PatientID, payload, report.Severity, report.Confidence, report.NeedsReview, report.CreatedAt)

	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("report_save").Inc()
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *ReportRepo) SaveSummary(ctx context.Context, summary *domain.ClinicalIntelligenceSummary) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("summary_save").Observe(time.Since(start).Seconds()) }()

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO summaries (report_id, patient_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_id) DO UPDATE SET payload = EXCLUDED.payload
	`, summary.ReportID, summary.PatientID, payload, summary.GeneratedAt)

	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("summary_save").Inc()
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

func (r *ReportRepo) GetReport(ctx context.Context, id uuid.UUID) (*domain.ConsolidatedReport, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("report_get").Observe(time.Since(start).Seconds()) }()

	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM reports WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("report_get").Inc()
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report domain.ConsolidatedReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepo) GetSummary(ctx context.Context, reportID uuid.UUID) (*domain.ClinicalIntelligenceSummary, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM summaries WHERE report_id = $1`, reportID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("summary_get").Inc()
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	var summary domain.ClinicalIntelligenceSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}

func (r *ReportRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.ConsolidatedReport, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("report_list").Observe(time.Since(start).Seconds()) }()

	rows, err := r.pool.Query(ctx, `
		SELECT payload FROM reports WHERE patient_id = $1 ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("report_list").Inc()
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ConsolidatedReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report domain.ConsolidatedReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
