package database

import (
	"context"
	"testing"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestPatient is a helper that creates a patient with default values for testing.
// Returns the created patient.
func CreateTestPatient(t *testing.T, pool *pgxpool.Pool) *domain.PatientRecord {
	t.Helper()

	repo := NewPatientRepo(pool)
	patient := &domain.PatientRecord{
		FirstName:      "Asha",
		LastName:       "Verma",
		DateOfBirth:    "1968-04-12",
		Gender:         "female",
		Contact:        "+91-9000000000",
		MedicalHistory: "type 2 diabetes, hypertension",
	}

	err := repo.Create(context.Background(), patient)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, patient.ID)

	return patient
}

// CreateTestReport is a helper that persists a minimal consolidated report
// for the given patient. Returns the created report.
func CreateTestReport(t *testing.T, pool *pgxpool.Pool, patientID uuid.UUID) *domain.ConsolidatedReport {
	t.Helper()

	repo := NewReportRepo(pool)
	report := &domain.ConsolidatedReport{
		ID:               uuid.New(),
		PatientID:        patientID,
		PatientName:      "Asha Verma",
		VisitDate:        time.Now().UTC(),
		ChiefComplaint:   "chest pain and shortness of breath",
		PrimaryDiagnosis: "acute coronary syndrome",
		Severity:         domain.RiskHigh,
		Confidence:       0.82,
		CreatedBy:        "master_consolidation_layer",
		CreatedAt:        time.Now().UTC(),
	}

	err := repo.SaveReport(context.Background(), report)
	require.NoError(t, err)

	return report
}
