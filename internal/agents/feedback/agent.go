// Package feedback closes the clinician loop: it records doctor
// verdicts on generated reports, classifies free-text feedback,
// reinforces the memories the report was built on, and tracks the
// system's accuracy over time.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "feedback_agent"

// rescanConfidencePenalty discounts a report's confidence when a
// doctor files corrections against it.
const rescanConfidencePenalty = 0.9

var (
	negativeMarkers = []string{"wrong", "incorrect", "disagree", "not right", "missed", "dangerous", "inaccurate"}
	partialMarkers  = []string{"partially", "mostly", "however", "except", "but ", "some corrections", "almost"}
	positiveMarkers = []string{"correct", "agree", "accurate", "confirm", "well done", "good analysis", "spot on"}
)

// Debouncer suppresses duplicate submissions from the same doctor.
type Debouncer interface {
	CheckDebounce(ctx context.Context, reportID uuid.UUID, doctorID string) (bool, error)
}

// Reinforcer applies confidence deltas to stored memory chunks.
type Reinforcer interface {
	Reinforce(ctx context.Context, patientID uuid.UUID, chunkIDs []uuid.UUID, delta float64) (int, error)
}

// Invalidator drops cached copies of a report after a rescan rewrites it.
type Invalidator interface {
	Invalidate(ctx context.Context, reportID uuid.UUID) error
}

// Stats aggregates the feedback received for a report.
type Stats struct {
	Total        int     `json:"total_feedback"`
	Correct      int     `json:"correct"`
	Partial      int     `json:"partially_correct"`
	Incorrect    int     `json:"incorrect"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// Agent records and processes doctor feedback.
type Agent struct {
	repo     domain.FeedbackRepository
	reports  domain.ReportRepository
	audit    domain.AuditRepository
	memory   Reinforcer
	debounce Debouncer
	cache    Invalidator
}

func New(repo domain.FeedbackRepository, reports domain.ReportRepository, audit domain.AuditRepository, memory Reinforcer, debounce Debouncer, cache Invalidator) *Agent {
	return &Agent{repo: repo, reports: reports, audit: audit, memory: memory, debounce: debounce, cache: cache}
}

// Classify derives the feedback type from a free-text transcript.
// Negative markers dominate, mixed signals read as partial agreement.
func Classify(transcript string) domain.FeedbackType {
	lower := strings.ToLower(transcript)

	negative := containsAny(lower, negativeMarkers)
	partial := containsAny(lower, partialMarkers)

	// Scrub negative markers first: "incorrect" must not match
	// "correct", nor "disagree" match "agree".
	scrubbed := lower
	for _, m := range negativeMarkers {
		scrubbed = strings.ReplaceAll(scrubbed, m, "")
	}
	positive := containsAny(scrubbed, positiveMarkers)

	switch {
	case negative && !positive:
		return domain.FeedbackIncorrect
	case partial || (negative && positive):
		return domain.FeedbackPartiallyCorrect
	case positive:
		return domain.FeedbackCorrect
	default:
		return domain.FeedbackPartiallyCorrect
	}
}

// Submit records a doctor's feedback: debounce, classify if untyped,
// persist, reinforce the supporting memories and audit the event.
func (a *Agent) Submit(ctx context.Context, feedback *domain.DoctorFeedback, chunkIDs []uuid.UUID) error {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	allowed, err := a.debounce.CheckDebounce(ctx, feedback.ReportID, feedback.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to check feedback debounce: %w", err)
	}
	if !allowed {
		return domain.ErrFeedbackDebounced
	}

	if feedback.Type == "" {
		feedback.Type = Classify(feedback.Transcript)
	}

	report, err := a.reports.GetReport(ctx, feedback.ReportID)
	if err != nil {
		return fmt.Errorf("failed to load report for feedback: %w", err)
	}

	if err := a.repo.Save(ctx, feedback); err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	delta := feedback.Type.ConfidenceDelta()
	if a.memory != nil && len(chunkIDs) > 0 && delta != 0 {
		if _, err := a.memory.Reinforce(ctx, report.PatientID, chunkIDs, delta); err != nil {
			// Learning is best-effort; the feedback record is already saved
			slog.Warn("Memory reinforcement from feedback failed", "report_id", feedback.ReportID, "error", err)
		}
	}

	if feedback.Type != domain.FeedbackCorrect {
		if err := a.rescanReport(ctx, report, feedback); err != nil {
			slog.Warn("Report rescan after corrections failed", "report_id", report.ID, "error", err)
		}
	}

	entry := &domain.AuditEntry{
		PatientID: report.PatientID,
		Operation: "feedback_recorded",
		Actor:     feedback.DoctorID,
		Details: map[string]any{
			"report_id":     feedback.ReportID.String(),
			"feedback_type": string(feedback.Type),
			"chunks":        len(chunkIDs),
		},
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		slog.Warn("Failed to audit feedback", "report_id", feedback.ReportID, "error", err)
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return nil
}

// rescanReport applies a doctor's corrections to the stored report:
// confidence discounted, the report flagged for clinician review, and
// any cached copy dropped so readers see the rewritten version.
func (a *Agent) rescanReport(ctx context.Context, report *domain.ConsolidatedReport, feedback *domain.DoctorFeedback) error {
	report.Confidence *= rescanConfidencePenalty
	report.NeedsReview = true
	if feedback.Corrections != "" {
		report.EvidenceSummary = strings.TrimSpace(report.EvidenceSummary + "\n\nClinician corrections: " + feedback.Corrections)
	}
	if err := a.reports.SaveReport(ctx, report); err != nil {
		return err
	}
	if a.cache != nil {
		if err := a.cache.Invalidate(ctx, report.ID); err != nil {
			slog.Warn("Failed to invalidate report cache after rescan", "report_id", report.ID, "error", err)
		}
	}
	return nil
}

// Accuracy aggregates all feedback on a report into accuracy stats.
func (a *Agent) Accuracy(ctx context.Context, reportID uuid.UUID) (*Stats, error) {
	feedbacks, err := a.repo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	stats := &Stats{Total: len(feedbacks)}
	for _, fb := range feedbacks {
		switch fb.Type {
		case domain.FeedbackCorrect:
			stats.Correct++
		case domain.FeedbackPartiallyCorrect:
			stats.Partial++
		case domain.FeedbackIncorrect:
			stats.Incorrect++
		}
	}
	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Correct) / float64(stats.Total)
	}
	return stats, nil
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
