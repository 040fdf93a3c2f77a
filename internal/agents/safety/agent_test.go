package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

func wellGroundedAnalysis() *domain.MergedAnalysis {
	return &domain.MergedAnalysis{
		PrimaryDiagnosis: "myocardial infarction",
		Differentials:    []string{"unstable angina"},
		Confidence:       0.85,
		Reasoning:        "troponin elevation with ischemic ECG changes",
	}
}

func supportingEvidence() []string {
	return []string{
		"elevated troponin consistent with myocardial injury",
		"ECG shows ST depression, cannot rule out unstable angina",
	}
}

func TestAssess_WellGroundedAnalysisPasses(t *testing.T) {
	agent := New()

	assessment := agent.Assess(context.Background(), wellGroundedAnalysis(), supportingEvidence())

	assert.True(t, assessment.Passed)
	assert.True(t, assessment.EvidenceBacked)
	assert.True(t, assessment.ConfidenceThresholdMet)
	assert.False(t, assessment.BiasDetected)
	assert.Empty(t, assessment.Notes)
}

func TestAssess_NoEvidenceFails(t *testing.T) {
	agent := New()

	assessment := agent.Assess(context.Background(), wellGroundedAnalysis(), nil)

	assert.False(t, assessment.Passed)
	assert.False(t, assessment.EvidenceBacked)
	assert.InDelta(t, 1.0, assessment.HallucinationScore, 0.001)
	assert.Contains(t, assessment.Notes, "hallucination risk")
}

func TestAssess_LowConfidenceFails(t *testing.T) {
	agent := New()
	analysis := wellGroundedAnalysis()
	analysis.Confidence = 0.5

	assessment := agent.Assess(context.Background(), analysis, supportingEvidence())

	assert.False(t, assessment.Passed)
	assert.False(t, assessment.ConfidenceThresholdMet)
	assert.True(t, assessment.EvidenceBacked)
	assert.Contains(t, assessment.Notes, "confidence below clinical threshold")
}

func TestAssess_BiasedReasoningFlagged(t *testing.T) {
	agent := New()
	analysis := wellGroundedAnalysis()
	analysis.Reasoning = "Elderly patients typically exaggerate symptoms; the patient is non-compliant."

	assessment := agent.Assess(context.Background(), analysis, supportingEvidence())

	assert.False(t, assessment.Passed)
	assert.True(t, assessment.BiasDetected)
	assert.ElementsMatch(t, []string{"age_assumption", "adherence_assumption"}, assessment.BiasFlags)
	assert.Contains(t, assessment.Notes, "potential bias")
}

func TestHallucinationRisk_PartialSupport(t *testing.T) {
	analysis := &domain.MergedAnalysis{
		PrimaryDiagnosis: "myocardial infarction",
		Differentials:    []string{"pheochromocytoma"},
	}
	evidence := []string{"elevated troponin points to myocardial injury"}

	// One of two claims unsupported
	risk := HallucinationRisk(analysis, evidence)
	require.InDelta(t, 0.5, risk, 0.001)
}

func TestHallucinationRisk_AllUnsupported(t *testing.T) {
	analysis := &domain.MergedAnalysis{PrimaryDiagnosis: "pheochromocytoma"}
	risk := HallucinationRisk(analysis, []string{"routine checkup, no findings"})
	assert.InDelta(t, 1.0, risk, 0.001)
}

func TestDetectBias_CleanTextHasNoFlags(t *testing.T) {
	flags := DetectBias(wellGroundedAnalysis())
	assert.Empty(t, flags)
}

func TestDetectBias_DeduplicatesFlags(t *testing.T) {
	analysis := &domain.MergedAnalysis{
		Reasoning: "women tend to underreport; men tend to delay care",
	}
	flags := DetectBias(analysis)
	assert.Equal(t, []string{"gender_assumption"}, flags)
}
