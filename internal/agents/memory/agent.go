// Package memory is the long-term store for embedded medical data. It
// writes chunks to the vector store, records the operation in the
// audit trail, and applies feedback-driven confidence reinforcement.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "memory_agent"

// Agent persists embedded chunks and manages memory reinforcement.
type Agent struct {
	store domain.VectorStore
	audit domain.AuditRepository
}

func New(store domain.VectorStore, audit domain.AuditRepository) *Agent {
	return &Agent{store: store, audit: audit}
}

// Store writes chunks to the vector store and audits the operation.
func (a *Agent) Store(ctx context.Context, patientID uuid.UUID, chunks []domain.EmbeddingChunk) error {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	if a.store == nil {
		return domain.ErrVectorStoreDisabled
	}
	if len(chunks) == 0 {
		return nil
	}

	if err := a.store.Upsert(ctx, chunks); err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return fmt.Errorf("failed to store memory chunks: %w", err)
	}

	entry := &domain.AuditEntry{
		PatientID: patientID,
		Operation: "memory_stored",
		Details:   map[string]any{"chunks": len(chunks)},
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		// Audit failure should not lose the stored memory
		slog.Warn("Failed to audit memory store", "patient_id", patientID, "error", err)
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return nil
}

// Reinforce applies a confidence delta to each chunk. Individual
// failures are logged and skipped so one missing chunk does not block
// the rest of the batch.
func (a *Agent) Reinforce(ctx context.Context, patientID uuid.UUID, chunkIDs []uuid.UUID, delta float64) (int, error) {
	if a.store == nil {
		return 0, domain.ErrVectorStoreDisabled
	}

	var reinforced int
	for _, chunkID := range chunkIDs {
		if err := a.store.Reinforce(ctx, chunkID, delta); err != nil {
			slog.Warn("Failed to reinforce memory chunk", "chunk_id", chunkID, "error", err)
			continue
		}
		reinforced++
	}

	if reinforced > 0 {
		entry := &domain.AuditEntry{
			PatientID: patientID,
			Operation: "memory_reinforced",
			Details:   map[string]any{"chunks": reinforced, "delta": delta},
		}
		if err := a.audit.Record(ctx, entry); err != nil {
			slog.Warn("Failed to audit reinforcement", "patient_id", patientID, "error", err)
		}
	}
	return reinforced, nil
}
