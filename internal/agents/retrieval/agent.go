// Package retrieval gathers clinical evidence for the reasoning
// agents: hybrid dense+sparse search, temporal timelines and
// cross-patient similar-case lookup.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "retrieval_agent"

const (
	// Hybrid fusion weights: semantic matching dominates, keyword
	// specificity refines.
	denseWeight  = 0.6
	sparseWeight = 0.4

	// DefaultTimelineDays is the look-back window for timelines.
	DefaultTimelineDays = 90
	// decayFactor controls how fast older evidence loses weight:
	// score * e^(-age_days / decayFactor).
	decayFactor = 30.0

	defaultTopK     = 5
	similarCasesTop = 3
)

// Agent performs evidence retrieval against the vector store.
type Agent struct {
	store domain.VectorStore
	clock func() time.Time
}

func New(store domain.VectorStore) *Agent {
	return &Agent{store: store, clock: time.Now}
}

// HybridSearch runs dense and sparse searches and fuses the scores:
// 0.6*dense + 0.4*sparse, merged by chunk ID.
func (a *Agent) HybridSearch(ctx context.Context, dense []float64, sparse domain.SparseVector, filter domain.SearchFilter, topK int) ([]domain.SearchResult, error) {
	if a.store == nil {
		return nil, domain.ErrVectorStoreDisabled
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	// Over-fetch both sides so fusion has candidates to merge
	denseResults, err := a.store.SearchDense(ctx, dense, filter, topK*2)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	var sparseResults []domain.SearchResult
	if len(sparse) > 0 {
		sparseResults, err = a.store.SearchSparse(ctx, sparse, filter, topK*2)
		if err != nil {
			// Sparse side is an enhancement; degrade to dense-only
			slog.Warn("Sparse search failed, using dense results only", "error", err)
		}
	}

	fused := FuseResults(denseResults, sparseResults)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	metrics.HybridSearchResults.Observe(float64(len(fused)))
	return fused, nil
}

// FuseResults merges dense and sparse hits by chunk ID with weighted
// score combination, sorted by fused score descending.
func FuseResults(denseResults, sparseResults []domain.SearchResult) []domain.SearchResult {
	merged := make(map[uuid.UUID]*domain.SearchResult)

	for _, r := range denseResults {
		entry := r
		entry.DenseScore = r.Score
		entry.Score = denseWeight * r.Score
		merged[r.ChunkID] = &entry
	}
	for _, r := range sparseResults {
		if existing, ok := merged[r.ChunkID]; ok {
			existing.SparseScore = r.Score
			existing.Score += sparseWeight * r.Score
			continue
		}
		entry := r
		entry.SparseScore = r.Score
		entry.Score = sparseWeight * r.Score
		merged[r.ChunkID] = &entry
	}

	out := make([]domain.SearchResult, 0, len(merged))
	for _, r := range merged {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Timeline retrieves a patient's recent history in chronological order
// with temporal decay applied to relevance scores.
func (a *Agent) Timeline(ctx context.Context, patientID uuid.UUID, dense []float64, daysBack int) ([]domain.SearchResult, error) {
	if a.store == nil {
		return nil, domain.ErrVectorStoreDisabled
	}
	if daysBack <= 0 {
		daysBack = DefaultTimelineDays
	}

	now := a.clock()
	filter := domain.SearchFilter{
		PatientID: patientID,
		Since:     now.AddDate(0, 0, -daysBack),
	}

	results, err := a.store.SearchDense(ctx, dense, filter, 50)
	if err != nil {
		return nil, fmt.Errorf("timeline search failed: %w", err)
	}

	for i := range results {
		ageDays := now.Sub(results[i].Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		results[i].Score *= math.Exp(-ageDays / decayFactor)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})
	return results, nil
}

// ByModality retrieves the top evidence per modality for a patient.
func (a *Agent) ByModality(ctx context.Context, patientID uuid.UUID, dense []float64, sparse domain.SparseVector, modalities []domain.Modality) (map[domain.Modality][]domain.SearchResult, error) {
	out := make(map[domain.Modality][]domain.SearchResult, len(modalities))
	for _, modality := range modalities {
		filter := domain.SearchFilter{PatientID: patientID, Modality: modality}
		results, err := a.HybridSearch(ctx, dense, sparse, filter, defaultTopK)
		if err != nil {
			return nil, fmt.Errorf("retrieval for modality %s failed: %w", modality, err)
		}
		out[modality] = results
	}
	return out, nil
}

// SimilarCases finds clinically similar chunks from other patients.
func (a *Agent) SimilarCases(ctx context.Context, patientID uuid.UUID, dense []float64) ([]domain.SearchResult, error) {
	if a.store == nil {
		return nil, domain.ErrVectorStoreDisabled
	}
	filter := domain.SearchFilter{ExcludePatientID: patientID}
	results, err := a.store.SearchDense(ctx, dense, filter, similarCasesTop)
	if err != nil {
		return nil, fmt.Errorf("similar cases search failed: %w", err)
	}
	return results, nil
}

// RetrieveForReasoning assembles the full evidence bundle the
// reasoning agents consume: per-modality hits, the temporal timeline
// and similar cases from other patients.
func (a *Agent) RetrieveForReasoning(ctx context.Context, patientID uuid.UUID, clinicalContext string, dense []float64, sparse domain.SparseVector) (*domain.RetrievalBundle, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	byModality, err := a.ByModality(ctx, patientID, dense, sparse, domain.AllModalities)
	if err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, err
	}

	timeline, err := a.Timeline(ctx, patientID, dense, DefaultTimelineDays)
	if err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, err
	}

	similar, err := a.SimilarCases(ctx, patientID, dense)
	if err != nil {
		// Comparative evidence is optional
		slog.Warn("Similar cases retrieval failed", "patient_id", patientID, "error", err)
		similar = nil
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return &domain.RetrievalBundle{
		PatientID:       patientID,
		ClinicalContext: clinicalContext,
		ByModality:      byModality,
		Timeline:        timeline,
		SimilarCases:    similar,
	}, nil
}
