package domain

import (
	"time"

	"github.com/google/uuid"
)

// LLMAnalysis is one model's view of a patient's clinical picture.
type LLMAnalysis struct {
	Provider         string   `json:"provider"`
	Findings         string   `json:"findings"`
	PrimaryDiagnosis string   `json:"primary_diagnosis"`
	Differentials    []string `json:"differential_diagnoses"`
	Recommendations  []string `json:"recommendations"`
	Confidence       float64  `json:"confidence_score"`
}

// ConsensusLevel expresses how closely the LLM analyses agree.
type ConsensusLevel string

const (
	ConsensusHigh     ConsensusLevel = "high"
	ConsensusModerate ConsensusLevel = "moderate"
)

// MergedAnalysis reconciles multiple LLM analyses into one picture.
type MergedAnalysis struct {
	Sources          []string       `json:"sources"`
	PrimaryDiagnosis string         `json:"primary_diagnosis"`
	Differentials    []string       `json:"differential_diagnoses"`
	Confidence       float64        `json:"confidence_score"`
	Consensus        ConsensusLevel `json:"consensus_level"`
	Reasoning        string         `json:"reasoning,omitempty"`
}

// DifferentialDiagnosis pairs a candidate diagnosis with confidence.
type DifferentialDiagnosis struct {
	Diagnosis  string  `json:"diagnosis"`
	Confidence float64 `json:"confidence"`
}

// ConsolidatedReport is the full clinician-facing report for one visit.
type ConsolidatedReport struct {
	ID                   uuid.UUID               `json:"report_id"`
	PatientID            uuid.UUID               `json:"patient_id"`
	PatientName          string                  `json:"patient_name"`
	VisitDate            time.Time               `json:"visit_date"`
	ChiefComplaint       string                  `json:"chief_complaint"`
	PatientVoice         string                  `json:"patient_voice"`
	VitalSigns           map[string]any          `json:"vital_signs"`
	ImagingFindings      string                  `json:"imaging_findings"`
	PrimaryDiagnosis     string                  `json:"primary_diagnosis"`
	Differentials        []DifferentialDiagnosis `json:"differential_diagnoses"`
	Severity             RiskLevel               `json:"severity"`
	Medications          []Recommendation        `json:"medications"`
	InvestigationsNeeded []string                `json:"investigations_needed"`
	Precautions          []string                `json:"precautions"`
	FollowUp             string                  `json:"follow_up"`
	EvidenceSummary      string                  `json:"evidence_summary"`
	Confidence           float64                 `json:"confidence_score"`
	NeedsReview          bool                    `json:"needs_clinician_review"`
	CreatedBy            string                  `json:"created_by"`
	CreatedAt            time.Time               `json:"created_at"`
}

// ClinicalIntelligenceSummary (CIS) is the final synthesized artifact:
// the complete clinical picture plus treatment plan, ready for narration.
type ClinicalIntelligenceSummary struct {
	PatientID          uuid.UUID `json:"patient_id"`
	ReportID           uuid.UUID `json:"report_id"`
	ClinicalPicture    string    `json:"complete_clinical_picture"`
	FinalDiagnosis     string    `json:"final_diagnosis"`
	TreatmentPlan      string    `json:"treatment_plan"`
	RiskScore          float64   `json:"risk_score"`
	AvailableLanguages []string  `json:"available_languages"`
	EthicalNotes       string    `json:"ethical_considerations"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// AuditEntry records one compliance-relevant operation.
type AuditEntry struct {
	ID        uuid.UUID      `json:"audit_id"`
	PatientID uuid.UUID      `json:"patient_id"`
	Operation string         `json:"operation"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
