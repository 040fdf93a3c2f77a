// Package consolidation is the final synthesis stage: it merges every
// agent's output into one clinician-facing report and the Clinical
// Intelligence Summary that narration and export build on.
package consolidation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "master_consolidation_layer"

// AvailableLanguages lists the narration languages every summary offers.
var AvailableLanguages = []string{"en", "es", "fr", "de", "hi"}

// Inputs gathers every agent output the layer merges.
type Inputs struct {
	Patient         *domain.PatientRecord
	ClinicalContext string
	ModalityResults map[domain.Modality][]domain.ModalityResult
	Merged          *domain.MergedAnalysis
	Risk            domain.RiskAssessment
	Plan            domain.CarePlan
	Safety          domain.SafetyAssessment
}

// Layer merges agent outputs into the consolidated report and summary.
type Layer struct {
	clock func() time.Time
}

func New() *Layer {
	return &Layer{clock: time.Now}
}

// Consolidate builds the final report and clinical intelligence summary.
func (l *Layer) Consolidate(_ context.Context, in Inputs) (*domain.ConsolidatedReport, *domain.ClinicalIntelligenceSummary, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	if in.Patient == nil {
		return nil, nil, fmt.Errorf("patient record is required for consolidation")
	}
	if in.Merged == nil {
		return nil, nil, fmt.Errorf("merged analysis is required for consolidation")
	}

	now := l.clock().UTC()
	report := &domain.ConsolidatedReport{
		ID:                   uuid.New(),
		PatientID:            in.Patient.ID,
		PatientName:          in.Patient.FullName(),
		VisitDate:            now,
		ChiefComplaint:       in.ClinicalContext,
		PatientVoice:         patientVoice(in.ModalityResults),
		VitalSigns:           vitalSigns(in.ModalityResults),
		ImagingFindings:      imagingFindings(in.ModalityResults),
		PrimaryDiagnosis:     in.Merged.PrimaryDiagnosis,
		Differentials:        differentials(in.Merged),
		Severity:             in.Risk.Level,
		Medications:          in.Plan.Medications,
		InvestigationsNeeded: in.Plan.Investigations,
		Precautions:          in.Plan.Precautions,
		FollowUp:             in.Plan.FollowUp,
		EvidenceSummary:      evidenceSummary(in.Merged),
		Confidence:           in.Merged.Confidence,
		NeedsReview:          !in.Safety.Passed,
		CreatedBy:            agentName,
		CreatedAt:            now,
	}

	summary, err := l.buildSummary(report, in)
	if err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, nil, err
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return report, summary, nil
}

func (l *Layer) buildSummary(report *domain.ConsolidatedReport, in Inputs) (*domain.ClinicalIntelligenceSummary, error) {
	treatmentPlan, err := json.Marshal(in.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode treatment plan: %w", err)
	}

	return &domain.ClinicalIntelligenceSummary{
		PatientID:          report.PatientID,
		ReportID:           report.ID,
		ClinicalPicture:    clinicalPicture(report, in),
		FinalDiagnosis:     report.PrimaryDiagnosis,
		TreatmentPlan:      string(treatmentPlan),
		RiskScore:          in.Risk.OverallScore,
		AvailableLanguages: AvailableLanguages,
		EthicalNotes:       ethicalNotes(in.Safety),
		GeneratedAt:        l.clock().UTC(),
	}, nil
}

// patientVoice surfaces the patient's own words from the audio results.
func patientVoice(results map[domain.Modality][]domain.ModalityResult) string {
	for _, r := range results[domain.ModalityAudio] {
		if transcript, ok := r.Findings["transcript"].(string); ok && transcript != "" {
			return transcript
		}
	}
	return ""
}

func vitalSigns(results map[domain.Modality][]domain.ModalityResult) map[string]any {
	vitals := map[string]any{}
	for _, r := range results[domain.ModalityTimeSeries] {
		for k, v := range r.Findings {
			vitals[k] = v
		}
	}
	for _, r := range results[domain.ModalityText] {
		if signs, ok := r.Findings["vital_signs"].(map[string]any); ok {
			for k, v := range signs {
				vitals[k] = v
			}
		}
	}
	return vitals
}

func imagingFindings(results map[domain.Modality][]domain.ModalityResult) string {
	var parts []string
	for _, r := range results[domain.ModalityImaging] {
		if r.Summary != "" {
			parts = append(parts, r.Summary)
		}
	}
	if len(parts) == 0 {
		return "No imaging studies in this visit"
	}
	return strings.Join(parts, "; ")
}

func differentials(merged *domain.MergedAnalysis) []domain.DifferentialDiagnosis {
	out := make([]domain.DifferentialDiagnosis, 0, len(merged.Differentials))
	for _, d := range merged.Differentials {
		// Differentials carry lower confidence than the primary
		out = append(out, domain.DifferentialDiagnosis{Diagnosis: d, Confidence: merged.Confidence * 0.7})
	}
	return out
}

func evidenceSummary(merged *domain.MergedAnalysis) string {
	summary := fmt.Sprintf("Diagnosis by %s (consensus %s, confidence %.0f%%)",
		strings.Join(merged.Sources, " + "), merged.Consensus, merged.Confidence*100)
	if merged.Reasoning != "" {
		summary += ": " + merged.Reasoning
	}
	return summary
}

func clinicalPicture(report *domain.ConsolidatedReport, in Inputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\n", report.PatientName)
	if report.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n", report.ChiefComplaint)
	}
	fmt.Fprintf(&b, "Primary diagnosis: %s\n", report.PrimaryDiagnosis)
	fmt.Fprintf(&b, "Risk level: %s (urgency %s)\n", report.Severity, domain.UrgencyFor(report.Severity))

	if report.PatientVoice != "" {
		fmt.Fprintf(&b, "\nPatient voice:\n%s\n", report.PatientVoice)
	}

	fmt.Fprintf(&b, "\nImaging: %s\n", report.ImagingFindings)

	if len(in.Risk.Factors) > 0 {
		fmt.Fprintf(&b, "Acute risk factors: %s\n", strings.Join(in.Risk.Factors, ", "))
	}
	if len(report.InvestigationsNeeded) > 0 {
		fmt.Fprintf(&b, "Investigations: %s\n", strings.Join(report.InvestigationsNeeded, ", "))
	}
	fmt.Fprintf(&b, "Follow-up: %s\n", report.FollowUp)
	fmt.Fprintf(&b, "\nEvidence: %s\n", report.EvidenceSummary)
	return b.String()
}

func ethicalNotes(safety domain.SafetyAssessment) string {
	if safety.Passed {
		return "Safety checks passed: evidence-backed, no bias detected, confidence threshold met"
	}
	return "Safety review required: " + safety.Notes
}
