package embedding

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	return []float64{0.1, 0.2}, nil
}

func TestChunk_ShortText(t *testing.T) {
	chunks := Chunk("patient stable overnight")
	require.Len(t, chunks, 1)
	assert.Equal(t, "patient stable overnight", chunks[0])
}

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, Chunk("  "))
}

func TestChunk_OverlappingWindows(t *testing.T) {
	words := make([]string, 1000)
	for i := range words {
		words[i] = "w" + strings.Repeat("x", i%3)
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text)
	// step = 412: chunks start at 0, 412, 824
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Len(t, first, ChunkSize)

	// Last 100 words of chunk 0 equal first 100 words of chunk 1
	assert.Equal(t, first[ChunkSize-ChunkOverlap:], second[:ChunkOverlap])

	third := strings.Fields(chunks[2])
	assert.Len(t, third, 1000-824)
}

func TestSparseVector_NormalizedAndBounded(t *testing.T) {
	vector := SparseVector("chest pain with chest tightness and pain radiating")
	require.NotEmpty(t, vector)

	var norm float64
	for idx, weight := range vector {
		assert.Less(t, idx, uint32(domain.SparseDimension))
		norm += weight * weight
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 0.001)
}

func TestSparseVector_RepeatedTermsWeighHeavier(t *testing.T) {
	vector := SparseVector("pain pain pain fever")

	var max, min float64 = 0, math.Inf(1)
	for _, w := range vector {
		if w > max {
			max = w
		}
		if w < min {
			min = w
		}
	}
	assert.Greater(t, max, min)
}

func TestSparseVector_Empty(t *testing.T) {
	assert.Nil(t, SparseVector("!!!"))
}

func TestEmbedDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	agent := New(embedder)

	data := domain.MedicalData{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Modality:  domain.ModalityText,
	}

	chunks, err := agent.EmbedDocument(context.Background(), data, "patient reports chest pain")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, data.ID, chunk.DataID)
	assert.Equal(t, data.PatientID, chunk.PatientID)
	assert.Equal(t, domain.ModalityText, chunk.Modality)
	assert.Equal(t, 0, chunk.Position)
	assert.Equal(t, []float64{0.1, 0.2}, chunk.Dense)
	assert.NotEmpty(t, chunk.Sparse)
	assert.Equal(t, "text-embedding-3-large", chunk.Model)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedDocument_EmptyText(t *testing.T) {
	agent := New(&fakeEmbedder{})
	chunks, err := agent.EmbedDocument(context.Background(), domain.MedicalData{}, "")
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestEmbedQuery(t *testing.T) {
	agent := New(&fakeEmbedder{})
	dense, sparse, err := agent.EmbedQuery(context.Background(), "diabetes history")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, dense)
	assert.NotEmpty(t, sparse)
}
