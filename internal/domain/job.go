package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks an analysis pipeline run through its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Pipeline stage names, in execution order. Reasoning, safety and risk
// run concurrently, so their completion order is not guaranteed.
const (
	StageRetrieval      = "retrieval"
	StageReasoning      = "reasoning"
	StageSafety         = "safety"
	StageRisk           = "risk"
	StageRecommendation = "recommendation"
	StageConsolidation  = "consolidation"
)

// AnalysisJob is the persisted state of one pipeline run.
type AnalysisJob struct {
	ID          uuid.UUID  `json:"job_id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	Status      JobStatus  `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	ReportID    uuid.UUID  `json:"report_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// StageUpdate is one progress event emitted while a job runs. Updates
// are streamed to websocket subscribers and recorded on the job itself.
type StageUpdate struct {
	JobID     uuid.UUID `json:"job_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
