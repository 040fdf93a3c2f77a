// Package safety audits generated analyses before they reach a
// clinician: hallucination risk against retrieved evidence, bias flags
// and confidence thresholds. A failed check marks the report for
// review; it never blocks delivery.
package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "safety_agent"

const (
	// HallucinationThreshold is the risk level above which the
	// analysis is flagged as insufficiently grounded.
	HallucinationThreshold = 0.7
	// ConfidenceThreshold is the minimum confidence for clinical use.
	ConfidenceThreshold = 0.65
)

// biasMarkers are phrases that suggest demographic assumptions leaked
// into the analysis.
var biasMarkers = map[string]string{
	"elderly patients typically": "age_assumption",
	"women tend to":              "gender_assumption",
	"men tend to":                "gender_assumption",
	"given the patient's age":    "age_assumption",
	"non-compliant":              "adherence_assumption",
	"drug-seeking":               "stigmatizing_language",
}

// Agent performs the safety assessment.
type Agent struct{}

func New() *Agent { return &Agent{} }

// Assess evaluates a merged analysis against the evidence it was
// derived from.
func (a *Agent) Assess(_ context.Context, analysis *domain.MergedAnalysis, evidence []string) domain.SafetyAssessment {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	assessment := domain.SafetyAssessment{
		HallucinationScore:     HallucinationRisk(analysis, evidence),
		ConfidenceThresholdMet: analysis.Confidence >= ConfidenceThreshold,
	}
	assessment.EvidenceBacked = assessment.HallucinationScore < HallucinationThreshold
	assessment.BiasFlags = DetectBias(analysis)
	assessment.BiasDetected = len(assessment.BiasFlags) > 0

	assessment.Passed = assessment.EvidenceBacked &&
		assessment.ConfidenceThresholdMet &&
		!assessment.BiasDetected

	if !assessment.Passed {
		assessment.Notes = buildNotes(assessment)
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return assessment
}

// HallucinationRisk estimates how weakly the diagnosis claims are
// grounded in retrieved evidence. Terms of the primary diagnosis that
// never appear in any evidence text raise the risk.
func HallucinationRisk(analysis *domain.MergedAnalysis, evidence []string) float64 {
	if len(evidence) == 0 {
		return 1.0
	}

	corpus := strings.ToLower(strings.Join(evidence, " "))
	claims := append([]string{analysis.PrimaryDiagnosis}, analysis.Differentials...)

	var unsupported int
	for _, claim := range claims {
		if !claimSupported(corpus, claim) {
			unsupported++
		}
	}
	return float64(unsupported) / float64(len(claims))
}

// claimSupported checks whether any meaningful term of the claim
// appears in the evidence corpus.
func claimSupported(corpus, claim string) bool {
	for _, term := range strings.Fields(strings.ToLower(claim)) {
		if len(term) < 4 {
			continue // skip stopword-sized tokens
		}
		if strings.Contains(corpus, term) {
			return true
		}
	}
	return false
}

// DetectBias scans the analysis text for stigmatizing or
// demographic-assumption phrasing.
func DetectBias(analysis *domain.MergedAnalysis) []string {
	text := strings.ToLower(analysis.Reasoning + " " + analysis.PrimaryDiagnosis)

	var flags []string
	seen := map[string]bool{}
	for marker, flag := range biasMarkers {
		if strings.Contains(text, marker) && !seen[flag] {
			seen[flag] = true
			flags = append(flags, flag)
		}
	}
	return flags
}

func buildNotes(a domain.SafetyAssessment) string {
	var notes []string
	if !a.EvidenceBacked {
		notes = append(notes, fmt.Sprintf("hallucination risk %.2f exceeds threshold %.2f", a.HallucinationScore, HallucinationThreshold))
	}
	if !a.ConfidenceThresholdMet {
		notes = append(notes, fmt.Sprintf("confidence below clinical threshold %.2f", ConfidenceThreshold))
	}
	if a.BiasDetected {
		notes = append(notes, "potential bias: "+strings.Join(a.BiasFlags, ", "))
	}
	return strings.Join(notes, "; ")
}
