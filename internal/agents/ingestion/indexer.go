package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/embedding"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/memory"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

// Indexer pushes modality summaries into long-term memory: each
// successful result is chunked, embedded and upserted so later hybrid
// retrievals can surface it as evidence.
type Indexer struct {
	embedder *embedding.Agent
	memory   *memory.Agent
}

func NewIndexer(embedder *embedding.Agent, mem *memory.Agent) *Indexer {
	return &Indexer{embedder: embedder, memory: mem}
}

// Index embeds and stores every completed result in the batch, sets
// ChunksStored on the result, and returns the chunk count. Items that
// fail to embed are skipped, and a disabled vector store is a no-op.
func (ix *Indexer) Index(ctx context.Context, result *domain.IngestionResult) (int, error) {
	var chunks []domain.EmbeddingChunk
	for modality, results := range result.ByModality {
		for _, mr := range results {
			if mr.Status != "completed" || mr.Summary == "" {
				continue
			}

			data := domain.MedicalData{
				ID:         mr.DataID,
				PatientID:  result.PatientID,
				Modality:   modality,
				IngestedAt: time.Now().UTC(),
			}
			embedded, err := ix.embedder.EmbedDocument(ctx, data, mr.Summary)
			if err != nil {
				slog.Warn("Failed to embed modality summary", "data_id", mr.DataID, "modality", modality, "error", err)
				continue
			}
			chunks = append(chunks, embedded...)
		}
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	if err := ix.memory.Store(ctx, result.PatientID, chunks); err != nil {
		if errors.Is(err, domain.ErrVectorStoreDisabled) {
			slog.Warn("Vector store disabled, ingested data not indexed", "patient_id", result.PatientID)
			return 0, nil
		}
		return 0, err
	}

	result.ChunksStored = len(chunks)
	return len(chunks), nil
}
