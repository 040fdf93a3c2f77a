package database

import (
	"context"
	"testing"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetReport(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReportRepo(pool)
	ctx := context.Background()

	patient := CreateTestPatient(t, pool)
	inserted := CreateTestReport(t, pool, patient.ID)

	report, err := repo.GetReport(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, report.ID)
	assert.Equal(t, patient.ID, report.PatientID)
	assert.Equal(t, "acute coronary syndrome", report.PrimaryDiagnosis)
	assert.Equal(t, domain.RiskHigh, report.Severity)
	assert.InDelta(t, 0.82, report.Confidence, 0.001)
}

func TestGetReport_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReportRepo(pool)
	ctx := context.Background()

	report, err := repo.GetReport(ctx, uuid.New())

	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	assert.Nil(t, report)
}

func TestListReportsByPatient_Ordering(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReportRepo(pool)
	ctx := context.Background()

	patient := CreateTestPatient(t, pool)
	first := CreateTestReport(t, pool, patient.ID)
	time.Sleep(10 * time.Millisecond)
	second := CreateTestReport(t, pool, patient.ID)

	reports, err := repo.ListByPatient(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Newest first
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)
}

func TestSaveSummary_Upsert(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReportRepo(pool)
	ctx := context.Background()

	patient := CreateTestPatient(t, pool)
	report := CreateTestReport(t, pool, patient.ID)

	summary := &domain.ClinicalIntelligenceSummary{
		PatientID:          patient.ID,
		ReportID:           report.ID,
		FinalDiagnosis:     "acute coronary syndrome",
		TreatmentPlan:      "admit, serial troponins, cardiology consult",
		RiskScore:          0.74,
		AvailableLanguages: []string{"en", "es", "fr", "de", "hi"},
		GeneratedAt:        time.Now().UTC(),
	}
	require.NoError(t, repo.SaveSummary(ctx, summary))

	// Second save with updated plan replaces the payload
	summary.TreatmentPlan = "admit, serial troponins, cardiology consult, echo"
	require.NoError(t, repo.SaveSummary(ctx, summary))

	got, err := repo.GetSummary(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "admit, serial troponins, cardiology consult, echo", got.TreatmentPlan)
	assert.InDelta(t, 0.74, got.RiskScore, 0.001)
}

func TestGetSummary_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReportRepo(pool)
	ctx := context.Background()

	summary, err := repo.GetSummary(ctx, uuid.New())

	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	assert.Nil(t, summary)
}
