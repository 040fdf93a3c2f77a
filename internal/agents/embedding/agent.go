// Package embedding turns modality summaries into hybrid vectors:
// dense embeddings from the configured embedder plus hashed sparse
// keyword vectors for exact-term matching.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "embedding_agent"

const (
	// ChunkSize is the number of words per chunk.
	ChunkSize = 512
	// ChunkOverlap is the number of words shared between adjacent chunks.
	ChunkOverlap = 100
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Agent chunks documents and produces dense + sparse vectors.
type Agent struct {
	embedder domain.Embedder
	model    string
}

func New(embedder domain.Embedder) *Agent {
	return &Agent{embedder: embedder, model: "text-embedding-3-large"}
}

// Chunk splits text into overlapping word windows.
func Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= ChunkSize {
		return []string{strings.Join(words, " ")}
	}

	step := ChunkSize - ChunkOverlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// SparseVector builds an L2-normalized hashed term-frequency vector
// over domain.SparseDimension buckets.
func SparseVector(text string) domain.SparseVector {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[uint32]float64)
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		counts[h.Sum32()%domain.SparseDimension] += 1
	}

	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	norm = math.Sqrt(norm)

	vector := make(domain.SparseVector, len(counts))
	for idx, c := range counts {
		vector[idx] = c / norm
	}
	return vector
}

// EmbedDocument chunks the text and embeds every chunk.
func (a *Agent) EmbedDocument(ctx context.Context, data domain.MedicalData, text string) ([]domain.EmbeddingChunk, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	pieces := Chunk(text)
	if len(pieces) == 0 {
		return nil, nil
	}

	chunks := make([]domain.EmbeddingChunk, 0, len(pieces))
	for i, piece := range pieces {
		dense, err := a.embedder.Embed(ctx, piece)
		if err != nil {
			metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		chunks = append(chunks, domain.EmbeddingChunk{
			ID:        uuid.New(),
			DataID:    data.ID,
			PatientID: data.PatientID,
			Modality:  data.Modality,
			Text:      piece,
			Position:  i,
			Dense:     dense,
			Sparse:    SparseVector(piece),
			Model:     a.model,
			CreatedAt: time.Now().UTC(),
		})
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return chunks, nil
}

// EmbedQuery produces the dense + sparse pair for a search query.
func (a *Agent) EmbedQuery(ctx context.Context, query string) ([]float64, domain.SparseVector, error) {
	dense, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return dense, SparseVector(query), nil
}
