package domain

// RiskLevel bands the overall risk score.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
)

// Urgency maps risk to how fast intervention is needed.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyRoutine   Urgency = "routine"
)

// UrgencyFor derives the urgency band from a risk level.
func UrgencyFor(level RiskLevel) Urgency {
	switch level {
	case RiskCritical:
		return UrgencyEmergency
	case RiskHigh:
		return UrgencyUrgent
	default:
		return UrgencyRoutine
	}
}

// RiskAssessment is the risk agent's output for one patient.
type RiskAssessment struct {
	Level                RiskLevel `json:"risk_level"`
	OverallScore         float64   `json:"overall_risk_score"`
	AcuteScore           float64   `json:"acute_risk_score"`
	ChronicScore         float64   `json:"chronic_risk_score"`
	ComplicationScore    float64   `json:"complication_risk_score"`
	MortalityScore       float64   `json:"mortality_risk_score"`
	HospitalizationScore float64   `json:"hospitalization_risk_score"`
	Factors              []string  `json:"risk_factors"`
	InterventionsNeeded  []string  `json:"interventions_needed"`
}

// SafetyAssessment is the safety agent's verdict on generated output.
type SafetyAssessment struct {
	HallucinationScore     float64  `json:"hallucination_score"`
	BiasDetected           bool     `json:"bias_detected"`
	BiasFlags              []string `json:"bias_flags,omitempty"`
	EvidenceBacked         bool     `json:"evidence_backed"`
	ConfidenceThresholdMet bool     `json:"confidence_threshold_met"`
	Passed                 bool     `json:"passed"`
	Notes                  string   `json:"notes,omitempty"`
}

// EvidenceLevel grades how strongly a recommendation is supported.
type EvidenceLevel string

const (
	EvidenceA EvidenceLevel = "A" // randomized controlled trials
	EvidenceB EvidenceLevel = "B" // controlled studies
	EvidenceC EvidenceLevel = "C" // expert consensus
)

// Recommendation is a single actionable item in the care plan.
type Recommendation struct {
	Name      string        `json:"name"`
	Detail    string        `json:"detail,omitempty"`
	Rationale string        `json:"rationale,omitempty"`
	Evidence  EvidenceLevel `json:"evidence_level,omitempty"`
}

// CarePlan groups the recommendation agent's full output.
type CarePlan struct {
	Medications    []Recommendation `json:"medications"`
	Investigations []string         `json:"investigations"`
	Monitoring     []string         `json:"monitoring"`
	Lifestyle      []string         `json:"lifestyle"`
	Precautions    []string         `json:"precautions"`
	FollowUp       string           `json:"followup"`
}
