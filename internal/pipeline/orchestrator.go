// Package pipeline orchestrates a full patient analysis run: evidence
// retrieval, parallel LLM reasoning, safety and risk assessment,
// care-plan generation and final consolidation. Jobs run asynchronously
// and stream stage progress to subscribers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/embedding"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/reasoning"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/recommendation"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/retrieval"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/risk"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/safety"
	"github.com/RAJARYANSINGH0059/Convolve/internal/consolidation"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

// jobTimeout bounds a full pipeline run.
const jobTimeout = 5 * time.Minute

const (
	// workerCount caps how many analyses run concurrently.
	workerCount = 4
	// queueDepth is how many accepted jobs may wait for a worker.
	queueDepth = 32
)

// Request is everything an analysis run starts from.
type Request struct {
	PatientID       uuid.UUID
	ClinicalContext string
	ModalityResults map[domain.Modality][]domain.ModalityResult
	VitalSigns      map[string]float64
	LabValues       map[string]float64
}

// Notifier receives stage progress events for streaming to clients.
type Notifier interface {
	Publish(update domain.StageUpdate)
}

// Orchestrator wires the agents into the analysis pipeline.
type Orchestrator struct {
	jobs        domain.JobStore
	patients    domain.PatientRepository
	reports     domain.ReportRepository
	audit       domain.AuditRepository
	embedder    *embedding.Agent
	retrieval   *retrieval.Agent
	reasoning   *reasoning.Agent
	safety      *safety.Agent
	risk        *risk.Agent
	recommend   *recommendation.Agent
	consolidate *consolidation.Layer
	notifier    Notifier
	timeout     time.Duration

	queue chan queuedJob
	wg    sync.WaitGroup
}

type queuedJob struct {
	job     domain.AnalysisJob
	patient *domain.PatientRecord
	req     Request
}

func New(
	jobs domain.JobStore,
	patients domain.PatientRepository,
	reports domain.ReportRepository,
	audit domain.AuditRepository,
	embedder *embedding.Agent,
	retrievalAgent *retrieval.Agent,
	reasoningAgent *reasoning.Agent,
	notifier Notifier,
) *Orchestrator {
	o := &Orchestrator{
		jobs:        jobs,
		patients:    patients,
		reports:     reports,
		audit:       audit,
		embedder:    embedder,
		retrieval:   retrievalAgent,
		reasoning:   reasoningAgent,
		safety:      safety.New(),
		risk:        risk.New(),
		recommend:   recommendation.New(),
		consolidate: consolidation.New(),
		notifier:    notifier,
		timeout:     jobTimeout,
		queue:       make(chan queuedJob, queueDepth),
	}
	for i := 0; i < workerCount; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for qj := range o.queue {
		o.run(qj.job, qj.patient, qj.req)
	}
}

// Stop drains the worker pool. Callers must stop submitting jobs first.
func (o *Orchestrator) Stop() {
	close(o.queue)
	o.wg.Wait()
}

// Start validates the patient, persists a queued job and hands it to
// the worker pool. The returned job is for status polling.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*domain.AnalysisJob, error) {
	patient, err := o.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	job := &domain.AnalysisJob{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		Status:    domain.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save analysis job: %w", err)
	}

	select {
	case o.queue <- queuedJob{job: *job, patient: patient, req: req}:
	default:
		o.finish(ctx, job, domain.JobFailed, domain.ErrAnalysisBacklog.Error())
		metrics.PipelineJobsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrAnalysisBacklog
	}
	return job, nil
}

// Job returns the current state of a pipeline run.
func (o *Orchestrator) Job(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	return o.jobs.Get(ctx, id)
}

func (o *Orchestrator) run(job domain.AnalysisJob, patient *domain.PatientRecord, req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	start := time.Now()
	metrics.PipelineJobsActive.Inc()
	defer func() {
		metrics.PipelineJobsActive.Dec()
		metrics.PipelineJobDuration.Observe(time.Since(start).Seconds())
	}()

	job.Status = domain.JobRunning
	if err := o.execute(ctx, &job, patient, req); err != nil {
		slog.Error("Analysis pipeline failed", "job_id", job.ID, "patient_id", job.PatientID, "stage", job.Stage, "error", err)
		o.finish(ctx, &job, domain.JobFailed, err.Error())
		metrics.PipelineJobsTotal.WithLabelValues("failed").Inc()
		return
	}

	o.finish(ctx, &job, domain.JobCompleted, "")
	metrics.PipelineJobsTotal.WithLabelValues("completed").Inc()
}

func (o *Orchestrator) execute(ctx context.Context, job *domain.AnalysisJob, patient *domain.PatientRecord, req Request) error {
	// Stage 1: evidence retrieval
	o.enterStage(ctx, job, domain.StageRetrieval)
	bundle, err := o.retrieve(ctx, req)
	if err != nil {
		o.stageDone(job.ID, domain.StageRetrieval, "error")
		return err
	}
	o.stageDone(job.ID, domain.StageRetrieval, "completed")

	// Stage 2: multi-LLM reasoning
	o.enterStage(ctx, job, domain.StageReasoning)
	merged, _, err := o.reasoning.Analyze(ctx, bundle)
	if err != nil {
		o.stageDone(job.ID, domain.StageReasoning, "error")
		return fmt.Errorf("reasoning failed: %w", err)
	}
	o.stageDone(job.ID, domain.StageReasoning, "completed")

	// Stages 3+4: safety and risk run concurrently. The persisted job
	// advances once for the pair; the goroutines read only the job ID,
	// so the shared struct is never written from two places.
	var (
		safetyResult domain.SafetyAssessment
		riskResult   domain.RiskAssessment
	)
	o.enterStage(ctx, job, domain.StageSafety)
	o.publish(job.ID, domain.StageRisk, "running", "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		safetyResult = o.safety.Assess(gctx, merged, bundle.Evidence())
		o.stageDone(job.ID, domain.StageSafety, "completed")
		return nil
	})
	g.Go(func() error {
		riskResult = o.risk.Assess(gctx, risk.Input{
			VitalSigns:        req.VitalSigns,
			LabValues:         req.LabValues,
			Diagnoses:         append([]string{merged.PrimaryDiagnosis}, merged.Differentials...),
			ChronicConditions: chronicConditions(patient),
		})
		o.stageDone(job.ID, domain.StageRisk, "completed")
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Stage 5: care plan
	o.enterStage(ctx, job, domain.StageRecommendation)
	plan := o.recommend.Plan(ctx, append([]string{merged.PrimaryDiagnosis}, merged.Differentials...), riskResult)
	o.stageDone(job.ID, domain.StageRecommendation, "completed")

	// Stage 6: consolidation and persistence
	o.enterStage(ctx, job, domain.StageConsolidation)
	report, summary, err := o.consolidate.Consolidate(ctx, consolidation.Inputs{
		Patient:         patient,
		ClinicalContext: req.ClinicalContext,
		ModalityResults: req.ModalityResults,
		Merged:          merged,
		Risk:            riskResult,
		Plan:            plan,
		Safety:          safetyResult,
	})
	if err != nil {
		o.stageDone(job.ID, domain.StageConsolidation, "error")
		return fmt.Errorf("consolidation failed: %w", err)
	}

	if err := o.reports.SaveReport(ctx, report); err != nil {
		o.stageDone(job.ID, domain.StageConsolidation, "error")
		return fmt.Errorf("failed to save report: %w", err)
	}
	if err := o.reports.SaveSummary(ctx, summary); err != nil {
		o.stageDone(job.ID, domain.StageConsolidation, "error")
		return fmt.Errorf("failed to save summary: %w", err)
	}
	o.stageDone(job.ID, domain.StageConsolidation, "completed")

	job.ReportID = report.ID

	entry := &domain.AuditEntry{
		PatientID: job.PatientID,
		Operation: "analysis_completed",
		Details: map[string]any{
			"job_id":        job.ID.String(),
			"report_id":     report.ID.String(),
			"risk_level":    string(riskResult.Level),
			"safety_passed": safetyResult.Passed,
		},
	}
	if err := o.audit.Record(ctx, entry); err != nil {
		slog.Warn("Failed to audit analysis completion", "job_id", job.ID, "error", err)
	}
	return nil
}

// retrieve builds the evidence bundle. A missing vector store degrades
// to context-only reasoning instead of failing the run.
func (o *Orchestrator) retrieve(ctx context.Context, req Request) (*domain.RetrievalBundle, error) {
	dense, sparse, err := o.embedder.EmbedQuery(ctx, req.ClinicalContext)
	if err != nil {
		return nil, fmt.Errorf("failed to embed clinical context: %w", err)
	}

	bundle, err := o.retrieval.RetrieveForReasoning(ctx, req.PatientID, req.ClinicalContext, dense, sparse)
	if err != nil {
		if errors.Is(err, domain.ErrVectorStoreDisabled) {
			slog.Warn("Vector store disabled, reasoning over clinical context only", "patient_id", req.PatientID)
			return &domain.RetrievalBundle{
				PatientID:       req.PatientID,
				ClinicalContext: req.ClinicalContext,
			}, nil
		}
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	return bundle, nil
}

func (o *Orchestrator) enterStage(ctx context.Context, job *domain.AnalysisJob, stage string) {
	job.Stage = stage
	if err := o.jobs.Save(ctx, job); err != nil {
		slog.Warn("Failed to persist job stage", "job_id", job.ID, "stage", stage, "error", err)
	}
	o.publish(job.ID, stage, "running", "")
}

func (o *Orchestrator) stageDone(jobID uuid.UUID, stage, status string) {
	metrics.PipelineStageTotal.WithLabelValues(stage, status).Inc()
	o.publish(jobID, stage, status, "")
}

func (o *Orchestrator) finish(ctx context.Context, job *domain.AnalysisJob, status domain.JobStatus, errMsg string) {
	now := time.Now().UTC()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	if err := o.jobs.Save(ctx, job); err != nil {
		slog.Error("Failed to persist final job state", "job_id", job.ID, "error", err)
	}
	o.publish(job.ID, job.Stage, string(status), errMsg)
}

func (o *Orchestrator) publish(jobID uuid.UUID, stage, status, detail string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Publish(domain.StageUpdate{
		JobID:     jobID,
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// chronicConditions splits the comma-separated medical history field.
func chronicConditions(patient *domain.PatientRecord) []string {
	if patient.MedicalHistory == "" {
		return nil
	}
	parts := strings.Split(patient.MedicalHistory, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
