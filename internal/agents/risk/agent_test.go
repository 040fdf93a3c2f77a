package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

func TestBandScore(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0.95, domain.RiskCritical},
		{0.80, domain.RiskCritical},
		{0.79, domain.RiskHigh},
		{0.60, domain.RiskHigh},
		{0.59, domain.RiskModerate},
		{0.40, domain.RiskModerate},
		{0.39, domain.RiskLow},
		{0.0, domain.RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandScore(tt.score), "score %.2f", tt.score)
	}
}

func TestAcuteFactors(t *testing.T) {
	factors := AcuteFactors(map[string]float64{
		"heart_rate":        130,
		"systolic_bp":       85,
		"oxygen_saturation": 87,
		"respiratory_rate":  30,
		"temperature":       39.2,
	})
	require.Len(t, factors, 5)
	assert.Contains(t, factors[0], "tachycardia")
	assert.Contains(t, factors[1], "hypotension")
	assert.Contains(t, factors[2], "hypoxia")
}

func TestAcuteFactors_NormalVitals(t *testing.T) {
	factors := AcuteFactors(map[string]float64{
		"heart_rate":        72,
		"systolic_bp":       118,
		"oxygen_saturation": 98,
		"respiratory_rate":  16,
		"temperature":       36.8,
	})
	assert.Empty(t, factors)
}

func TestMortalityRisk_Components(t *testing.T) {
	risk := MortalityRisk(
		map[string]float64{"oxygen_saturation": 85},
		nil,
		[]string{"sepsis"},
	)
	assert.InDelta(t, 0.5, risk, 0.001)
}

func TestMortalityRisk_CappedAtOne(t *testing.T) {
	risk := MortalityRisk(
		map[string]float64{"oxygen_saturation": 85, "systolic_bp": 80},
		map[string]float64{"lactate": 5, "creatinine": 4},
		[]string{"sepsis", "myocardial infarction", "ischemic stroke"},
	)
	assert.InDelta(t, 1.0, risk, 0.001)
}

func TestAssess_CriticalPatient(t *testing.T) {
	agent := New()

	assessment := agent.Assess(context.Background(), Input{
		VitalSigns: map[string]float64{
			"heart_rate":        130,
			"systolic_bp":       85,
			"oxygen_saturation": 85,
			"respiratory_rate":  30,
			"temperature":       39.2,
		},
		Diagnoses:         []string{"sepsis"},
		Medications:       []string{"metformin", "lisinopril", "atorvastatin", "furosemide"},
		ChronicConditions: []string{"hypertension", "diabetes", "heart failure", "copd"},
		Age:               72,
		FunctionalStatus:  "dependent",
	})

	assert.Equal(t, domain.RiskCritical, assessment.Level)
	assert.InDelta(t, 1.0, assessment.AcuteScore, 0.001)
	assert.InDelta(t, 0.7, assessment.MortalityScore, 0.001)
	assert.InDelta(t, 1.0, assessment.HospitalizationScore, 0.001)
	assert.Len(t, assessment.Factors, 5)
	assert.Contains(t, assessment.InterventionsNeeded, "Urgent medical evaluation")
	assert.Contains(t, assessment.InterventionsNeeded, "Consider hospitalization")
	assert.Contains(t, assessment.InterventionsNeeded, "Intensive monitoring")
	assert.Contains(t, assessment.InterventionsNeeded, "Immediate emergency department referral")
	assert.Equal(t, domain.UrgencyEmergency, domain.UrgencyFor(assessment.Level))
}

func TestAssess_HealthyPatient(t *testing.T) {
	agent := New()

	assessment := agent.Assess(context.Background(), Input{
		VitalSigns: map[string]float64{
			"heart_rate":        70,
			"systolic_bp":       115,
			"oxygen_saturation": 98,
		},
		Age:              34,
		FunctionalStatus: "independent",
	})

	assert.Equal(t, domain.RiskLow, assessment.Level)
	assert.Zero(t, assessment.OverallScore)
	assert.Empty(t, assessment.Factors)
	assert.Empty(t, assessment.InterventionsNeeded)
}

func TestChronicScore_KnownAndUnknownConditions(t *testing.T) {
	// hypertension 0.3, unknown 0.2 -> mean 0.25
	score := chronicScore([]string{"hypertension", "restless legs"})
	assert.InDelta(t, 0.25, score, 0.001)
}
