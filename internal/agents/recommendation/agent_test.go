package recommendation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

func medicationNames(meds []domain.Recommendation) []string {
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	return names
}

func TestMedications_MatchedByDiagnosisKeyword(t *testing.T) {
	meds := Medications([]string{"acute coronary syndrome", "type 2 diabetes"})

	names := medicationNames(meds)
	assert.Contains(t, names, "Aspirin")
	assert.Contains(t, names, "Atorvastatin")
	assert.Contains(t, names, "Metformin")

	for _, med := range meds {
		assert.NotEmpty(t, med.Evidence, "medication %s missing evidence level", med.Name)
	}
}

func TestMedications_DeduplicatesAcrossDiagnoses(t *testing.T) {
	// Both rules suggest atorvastatin
	meds := Medications([]string{"coronary artery disease", "hyperlipidemia"})

	var count int
	for _, m := range meds {
		if m.Name == "Atorvastatin" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMedications_UnknownDiagnosis(t *testing.T) {
	assert.Empty(t, Medications([]string{"restless legs syndrome"}))
}

func TestFollowUpFor(t *testing.T) {
	assert.Contains(t, FollowUpFor(domain.RiskCritical), "24 hours")
	assert.Contains(t, FollowUpFor(domain.RiskHigh), "3 days")
	assert.Contains(t, FollowUpFor(domain.RiskModerate), "2 weeks")
	assert.Contains(t, FollowUpFor(domain.RiskLow), "1-3 months")
	// Unknown level falls back to the routine schedule
	assert.Contains(t, FollowUpFor(domain.RiskLevel("unknown")), "1-3 months")
}

func TestPlan_CriticalPatient(t *testing.T) {
	agent := New()
	risk := domain.RiskAssessment{
		Level:          domain.RiskCritical,
		MortalityScore: 0.4,
	}

	plan := agent.Plan(context.Background(), []string{"myocardial infarction"}, risk)

	require.NotEmpty(t, plan.Medications)
	assert.Contains(t, medicationNames(plan.Medications), "Metoprolol")
	assert.Contains(t, plan.Investigations, "12-lead ECG immediately")
	assert.Contains(t, plan.Monitoring, "Continuous vital sign monitoring")
	assert.Contains(t, plan.Monitoring, "Escalate to intensive monitoring if deterioration")
	assert.Contains(t, plan.Precautions, "Seek emergency care for chest pain, breathlessness or loss of consciousness")
	assert.Contains(t, plan.FollowUp, "24 hours")
}

func TestPlan_LowRiskPatient(t *testing.T) {
	agent := New()
	risk := domain.RiskAssessment{Level: domain.RiskLow}

	plan := agent.Plan(context.Background(), []string{"hypertension"}, risk)

	assert.Contains(t, medicationNames(plan.Medications), "Amlodipine")
	assert.Contains(t, plan.Lifestyle, "Reduce sodium below 2g/day")
	assert.Contains(t, plan.Monitoring, "Vital signs at each visit")
	assert.NotContains(t, plan.Precautions, "Seek emergency care for chest pain, breathlessness or loss of consciousness")
	assert.Contains(t, plan.FollowUp, "1-3 months")
}
