package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PatientRepo persists patient master records in PostgreSQL.
type PatientRepo struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) *PatientRepo {
	return &PatientRepo{pool: pool}
}

var _ domain.PatientRepository = (*PatientRepo)(nil)

func (r *PatientRepo) Create(ctx context.Context, patient *domain.PatientRecord) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("patient_create").Observe(time.Since(start).Seconds()) }()

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, date_of_birth, gender, contact, medical_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, patient.ID, patient.FirstName, patient.LastName, patient.DateOfBirth,
		patient.Gender, patient.Contact, patient.MedicalHistory,
	).Scan(&patient.CreatedAt, &patient.UpdatedAt)

	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("patient_create").Inc()
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PatientRecord, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration.WithLabelValues("patient_get").Observe(time.Since(start).Seconds()) }()

	var p domain.PatientRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, date_of_birth, gender, contact, medical_history, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Contact, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPatientNotFound
	}
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("patient_get").Inc()
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &p, nil
}
