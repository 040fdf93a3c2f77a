package domain

import (
	"time"

	"github.com/google/uuid"
)

// Embedding dimensions used throughout the system.
const (
	// DenseDimension matches text-embedding-3-large.
	DenseDimension = 3072
	// SparseDimension is the hashed term space for keyword vectors.
	SparseDimension = 512
)

// SparseVector maps hashed term IDs to weights. Only non-zero terms are stored.
type SparseVector map[uint32]float64

// EmbeddingChunk is one embedded slice of a medical document, ready for storage.
type EmbeddingChunk struct {
	ID        uuid.UUID    `json:"chunk_id"`
	DataID    uuid.UUID    `json:"data_id"`
	PatientID uuid.UUID    `json:"patient_id"`
	Modality  Modality     `json:"modality"`
	Text      string       `json:"text"`
	Position  int          `json:"position"`
	Dense     []float64    `json:"-"`
	Sparse    SparseVector `json:"-"`
	Model     string       `json:"embedding_model"`
	CreatedAt time.Time    `json:"created_at"`
}

// SearchResult is a single scored hit from the vector store.
type SearchResult struct {
	ChunkID    uuid.UUID      `json:"chunk_id"`
	PatientID  uuid.UUID      `json:"patient_id"`
	Modality   Modality       `json:"modality"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	DenseScore float64        `json:"dense_score,omitempty"`
	SparseScore float64       `json:"sparse_score,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// SearchFilter narrows vector searches.
type SearchFilter struct {
	PatientID        uuid.UUID
	ExcludePatientID uuid.UUID
	Modality         Modality
	Since            time.Time
}

// RetrievalBundle is everything the reasoning agents receive for one patient.
type RetrievalBundle struct {
	PatientID       uuid.UUID                     `json:"patient_id"`
	ClinicalContext string                        `json:"clinical_context"`
	ByModality      map[Modality][]SearchResult   `json:"modality_data"`
	Timeline        []SearchResult                `json:"timeline"`
	SimilarCases    []SearchResult                `json:"similar_cases"`
}

// Evidence returns all retrieved texts, used by the safety agent to
// ground-truth generated claims.
func (b RetrievalBundle) Evidence() []string {
	var out []string
	for _, results := range b.ByModality {
		for _, r := range results {
			out = append(out, r.Text)
		}
	}
	for _, r := range b.Timeline {
		out = append(out, r.Text)
	}
	return out
}
