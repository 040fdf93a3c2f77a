package domain

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository persists patient master records.
type PatientRepository interface {
	Create(ctx context.Context, patient *PatientRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
}

// ReportRepository persists consolidated reports and summaries.
type ReportRepository interface {
	SaveReport(ctx context.Context, report *ConsolidatedReport) error
	SaveSummary(ctx context.Context, summary *ClinicalIntelligenceSummary) error
	GetReport(ctx context.Context, id uuid.UUID) (*ConsolidatedReport, error)
	GetSummary(ctx context.Context, reportID uuid.UUID) (*ClinicalIntelligenceSummary, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]ConsolidatedReport, error)
}

// AuditRepository records compliance-relevant operations.
type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]AuditEntry, error)
}

// FeedbackRepository persists doctor feedback.
type FeedbackRepository interface {
	Save(ctx context.Context, feedback *DoctorFeedback) error
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]DoctorFeedback, error)
}

// JobStore tracks analysis pipeline jobs.
type JobStore interface {
	Save(ctx context.Context, job *AnalysisJob) error
	Get(ctx context.Context, id uuid.UUID) (*AnalysisJob, error)
}

// VectorStore is the hybrid-search storage backend (Qdrant).
type VectorStore interface {
	EnsureCollections(ctx context.Context) error
	Upsert(ctx context.Context, chunks []EmbeddingChunk) error
	SearchDense(ctx context.Context, vector []float64, filter SearchFilter, limit int) ([]SearchResult, error)
	SearchSparse(ctx context.Context, vector SparseVector, filter SearchFilter, limit int) ([]SearchResult, error)
	Reinforce(ctx context.Context, chunkID uuid.UUID, delta float64) error
}

// ChatModel is a text-in/text-out LLM used for reasoning and translation.
type ChatModel interface {
	Provider() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Embedder produces dense embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
