package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDebounce_FirstSubmissionAllowed(t *testing.T) {
	client := setupTestClient(t)
	debouncer := NewDebouncer(client.Underlying())

	allowed, err := debouncer.CheckDebounce(context.Background(), uuid.New(), "dr-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckDebounce_DuplicateSuppressed(t *testing.T) {
	client := setupTestClient(t)
	debouncer := NewDebouncer(client.Underlying())
	ctx := context.Background()

	reportID := uuid.New()

	allowed, err := debouncer.CheckDebounce(ctx, reportID, "dr-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = debouncer.CheckDebounce(ctx, reportID, "dr-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckDebounce_IndependentPerDoctorAndReport(t *testing.T) {
	client := setupTestClient(t)
	debouncer := NewDebouncer(client.Underlying())
	ctx := context.Background()

	reportID := uuid.New()

	allowed, err := debouncer.CheckDebounce(ctx, reportID, "dr-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Different doctor, same report
	allowed, err = debouncer.CheckDebounce(ctx, reportID, "dr-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Same doctor, different report
	allowed, err = debouncer.CheckDebounce(ctx, uuid.New(), "dr-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
