// Package risk stratifies patients across acute, chronic,
// complication, mortality and hospitalization dimensions and bands the
// weighted total into an overall risk level.
package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "risk_agent"

// Sub-score weights for the overall risk score.
const (
	acuteWeight           = 0.35
	mortalityWeight       = 0.20
	hospitalizationWeight = 0.15
	complicationWeight    = 0.15
	chronicWeight         = 0.15
)

// chronicWeights scores known chronic conditions; unknown conditions
// get defaultChronicWeight.
var chronicWeights = map[string]float64{
	"hypertension":           0.3,
	"high cholesterol":       0.25,
	"diabetes":               0.35,
	"type 2 diabetes":        0.35,
	"smoking":                0.4,
	"chronic lung disease":   0.3,
	"chronic kidney disease": 0.35,
	"heart failure":          0.45,
	"atrial fibrillation":    0.35,
}

const defaultChronicWeight = 0.2

// Input carries everything the assessment needs about a patient at the
// moment of analysis.
type Input struct {
	VitalSigns        map[string]float64
	LabValues         map[string]float64
	Diagnoses         []string
	Medications       []string
	ChronicConditions []string
	Age               int
	FunctionalStatus  string // independent | dependent
}

// Agent performs multi-factor risk stratification.
type Agent struct{}

func New() *Agent { return &Agent{} }

// Assess computes the full risk assessment for one patient.
func (a *Agent) Assess(_ context.Context, input Input) domain.RiskAssessment {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	acuteFactors := AcuteFactors(input.VitalSigns)

	assessment := domain.RiskAssessment{
		AcuteScore:        clamp01(float64(len(acuteFactors)) / 5),
		ChronicScore:      chronicScore(input.ChronicConditions),
		ComplicationScore: complicationScore(input),
		MortalityScore:    MortalityRisk(input.VitalSigns, input.LabValues, input.Diagnoses),
		Factors:           acuteFactors,
	}
	assessment.HospitalizationScore = hospitalizationScore(len(acuteFactors), len(input.ChronicConditions), input.FunctionalStatus)

	assessment.OverallScore = acuteWeight*assessment.AcuteScore +
		mortalityWeight*assessment.MortalityScore +
		hospitalizationWeight*assessment.HospitalizationScore +
		complicationWeight*assessment.ComplicationScore +
		chronicWeight*assessment.ChronicScore

	assessment.Level = BandScore(assessment.OverallScore)
	assessment.InterventionsNeeded = interventions(assessment)

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return assessment
}

// BandScore maps an overall risk score to a risk level.
func BandScore(score float64) domain.RiskLevel {
	switch {
	case score >= 0.8:
		return domain.RiskCritical
	case score >= 0.6:
		return domain.RiskHigh
	case score >= 0.4:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// AcuteFactors flags immediately dangerous vital sign readings.
func AcuteFactors(vitals map[string]float64) []string {
	var factors []string

	if hr, ok := vitals["heart_rate"]; ok {
		switch {
		case hr > 120:
			factors = append(factors, fmt.Sprintf("tachycardia (HR %.0f)", hr))
		case hr < 40:
			factors = append(factors, fmt.Sprintf("bradycardia (HR %.0f)", hr))
		}
	}
	if sbp, ok := vitals["systolic_bp"]; ok {
		switch {
		case sbp > 180:
			factors = append(factors, fmt.Sprintf("hypertensive crisis (SBP %.0f)", sbp))
		case sbp < 90:
			factors = append(factors, fmt.Sprintf("hypotension (SBP %.0f)", sbp))
		}
	}
	if spo2, ok := vitals["oxygen_saturation"]; ok && spo2 < 90 {
		factors = append(factors, fmt.Sprintf("hypoxia (SpO2 %.0f%%)", spo2))
	}
	if rr, ok := vitals["respiratory_rate"]; ok && (rr > 25 || rr < 10) {
		factors = append(factors, fmt.Sprintf("respiratory distress (RR %.0f)", rr))
	}
	if temp, ok := vitals["temperature"]; ok {
		switch {
		case temp > 38.5:
			factors = append(factors, fmt.Sprintf("fever (%.1f°C)", temp))
		case temp < 35:
			factors = append(factors, fmt.Sprintf("hypothermia (%.1f°C)", temp))
		}
	}
	return factors
}

// MortalityRisk estimates short-term mortality from physiology, lab
// markers and diagnosis severity.
func MortalityRisk(vitals, labs map[string]float64, diagnoses []string) float64 {
	var risk float64

	if spo2, ok := vitals["oxygen_saturation"]; ok && spo2 < 90 {
		risk += 0.3
	}
	if sbp, ok := vitals["systolic_bp"]; ok && sbp < 90 {
		risk += 0.2
	}
	if lactate, ok := labs["lactate"]; ok && lactate > 4 {
		risk += 0.25
	}
	if creatinine, ok := labs["creatinine"]; ok && creatinine > 3 {
		risk += 0.15
	}

	for _, d := range diagnoses {
		lower := strings.ToLower(d)
		switch {
		case strings.Contains(lower, "sepsis"):
			risk += 0.2
		case strings.Contains(lower, "myocardial infarction"), strings.Contains(lower, "acute coronary"):
			risk += 0.15
		case strings.Contains(lower, "stroke"):
			risk += 0.15
		}
	}
	return clamp01(risk)
}

func chronicScore(conditions []string) float64 {
	if len(conditions) == 0 {
		return 0
	}
	var sum float64
	for _, c := range conditions {
		weight, ok := chronicWeights[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			weight = defaultChronicWeight
		}
		sum += weight
	}
	return clamp01(sum / float64(len(conditions)))
}

func complicationScore(input Input) float64 {
	var count int
	if len(input.Medications) > 3 {
		count++ // polypharmacy interaction risk
	}
	if input.Age > 65 {
		count++ // fall risk, reduced drug metabolism
	}
	if len(input.ChronicConditions) > 2 && len(input.Medications) > 0 {
		count++ // multimorbidity under active treatment
	}
	return clamp01(float64(count) / 3)
}

func hospitalizationScore(acuteCount, chronicCount int, functionalStatus string) float64 {
	var risk float64
	if acuteCount > 0 {
		risk += 0.4
	}
	if chronicCount > 3 {
		risk += 0.3
	}
	if functionalStatus == "dependent" {
		risk += 0.3
	}
	return clamp01(risk)
}

func interventions(a domain.RiskAssessment) []string {
	var out []string
	if len(a.Factors) > 0 {
		out = append(out, "Urgent medical evaluation")
	}
	if a.HospitalizationScore > 0.5 {
		out = append(out, "Consider hospitalization")
	}
	if a.MortalityScore > 0.1 {
		out = append(out, "Intensive monitoring")
	}
	if a.Level == domain.RiskCritical {
		out = append(out, "Immediate emergency department referral")
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
