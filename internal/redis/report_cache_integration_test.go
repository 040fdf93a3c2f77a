package redis

import (
	"context"
	"testing"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReportRepo counts GetReport calls so tests can observe cache hits.
type fakeReportRepo struct {
	domain.ReportRepository
	report *domain.ConsolidatedReport
	calls  int
}

func (f *fakeReportRepo) GetReport(_ context.Context, id uuid.UUID) (*domain.ConsolidatedReport, error) {
	f.calls++
	if f.report == nil || f.report.ID != id {
		return nil, domain.ErrReportNotFound
	}
	return f.report, nil
}

func TestReportCache_ReadThrough(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	report := &domain.ConsolidatedReport{
		ID:               uuid.New(),
		PatientID:        uuid.New(),
		PrimaryDiagnosis: "community acquired pneumonia",
		Severity:         domain.RiskModerate,
		Confidence:       0.78,
		CreatedAt:        time.Now().UTC(),
	}
	repo := &fakeReportRepo{report: report}
	cache := NewReportCache(client.Underlying(), repo)

	// First read misses cache and hits the repository
	got, err := cache.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.PrimaryDiagnosis, got.PrimaryDiagnosis)
	assert.Equal(t, 1, repo.calls)

	// Second read is served from Redis
	got, err = cache.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, 1, repo.calls)
}

func TestReportCache_NotFoundPassesThrough(t *testing.T) {
	client := setupTestClient(t)
	cache := NewReportCache(client.Underlying(), &fakeReportRepo{})

	got, err := cache.GetReport(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	assert.Nil(t, got)
}

func TestReportCache_Invalidate(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	report := &domain.ConsolidatedReport{ID: uuid.New(), PatientID: uuid.New()}
	repo := &fakeReportRepo{report: report}
	cache := NewReportCache(client.Underlying(), repo)

	_, err := cache.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, report.ID))

	_, err = cache.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
