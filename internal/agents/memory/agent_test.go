package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

type fakeStore struct {
	domain.VectorStore
	upserted    []domain.EmbeddingChunk
	reinforced  map[uuid.UUID]float64
	failChunkID uuid.UUID
}

func (f *fakeStore) Upsert(_ context.Context, chunks []domain.EmbeddingChunk) error {
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeStore) Reinforce(_ context.Context, chunkID uuid.UUID, delta float64) error {
	if chunkID == f.failChunkID {
		return errors.New("not found")
	}
	if f.reinforced == nil {
		f.reinforced = make(map[uuid.UUID]float64)
	}
	f.reinforced[chunkID] = delta
	return nil
}

type fakeAudit struct {
	domain.AuditRepository
	entries []domain.AuditEntry
}

func (f *fakeAudit) Record(_ context.Context, entry *domain.AuditEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func TestStore_UpsertsAndAudits(t *testing.T) {
	store := &fakeStore{}
	audit := &fakeAudit{}
	agent := New(store, audit)

	patientID := uuid.New()
	chunks := []domain.EmbeddingChunk{{ID: uuid.New()}, {ID: uuid.New()}}

	require.NoError(t, agent.Store(context.Background(), patientID, chunks))

	assert.Len(t, store.upserted, 2)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "memory_stored", audit.entries[0].Operation)
	assert.Equal(t, patientID, audit.entries[0].PatientID)
}

func TestStore_EmptyIsNoop(t *testing.T) {
	store := &fakeStore{}
	audit := &fakeAudit{}
	agent := New(store, audit)

	require.NoError(t, agent.Store(context.Background(), uuid.New(), nil))
	assert.Empty(t, store.upserted)
	assert.Empty(t, audit.entries)
}

func TestStore_DisabledVectorStore(t *testing.T) {
	agent := New(nil, &fakeAudit{})
	err := agent.Store(context.Background(), uuid.New(), []domain.EmbeddingChunk{{}})
	assert.ErrorIs(t, err, domain.ErrVectorStoreDisabled)
}

func TestReinforce_SkipsFailures(t *testing.T) {
	failing := uuid.New()
	store := &fakeStore{failChunkID: failing}
	audit := &fakeAudit{}
	agent := New(store, audit)

	ok1, ok2 := uuid.New(), uuid.New()
	reinforced, err := agent.Reinforce(context.Background(), uuid.New(), []uuid.UUID{ok1, failing, ok2}, 0.10)
	require.NoError(t, err)

	assert.Equal(t, 2, reinforced)
	assert.InDelta(t, 0.10, store.reinforced[ok1], 0.001)
	assert.InDelta(t, 0.10, store.reinforced[ok2], 0.001)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "memory_reinforced", audit.entries[0].Operation)
}

func TestReinforce_NoSuccessNoAudit(t *testing.T) {
	failing := uuid.New()
	store := &fakeStore{failChunkID: failing}
	audit := &fakeAudit{}
	agent := New(store, audit)

	reinforced, err := agent.Reinforce(context.Background(), uuid.New(), []uuid.UUID{failing}, -0.08)
	require.NoError(t, err)
	assert.Zero(t, reinforced)
	assert.Empty(t, audit.entries)
}
