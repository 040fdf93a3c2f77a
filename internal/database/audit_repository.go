package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepo writes the append-only compliance trail.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

var _ domain.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("audit_record").Observe(time.Since(start).Seconds()) }()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}

	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, patient_id, operation, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.PatientID, entry.Operation, entry.Actor, details, entry.CreatedAt)

	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("audit_record").Inc()
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.AuditEntry, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("audit_list").Observe(time.Since(start).Seconds()) }()

	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, operation, actor, details, created_at
		FROM audit_log
		WHERE patient_id = $1
		ORDER BY created_at
	`, patientID)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("audit_list").Inc()
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.PatientID, &entry.Operation, &entry.Actor, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
