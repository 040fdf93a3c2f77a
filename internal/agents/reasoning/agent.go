// Package reasoning runs parallel LLM analyses over retrieved evidence
// and merges them into a consensus clinical picture.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "reasoning_agent"

// consensusDelta is the confidence gap below which two analyses are
// considered to be in high agreement.
const consensusDelta = 0.2

const systemPrompt = `You are a clinical reasoning assistant reviewing multi-modal patient evidence.
Respond with a single JSON object, no prose, with these fields:
{"findings": string, "primary_diagnosis": string, "differential_diagnoses": [string], "recommendations": [string], "confidence_score": number between 0 and 1}`

// Agent fans a case out to multiple chat models and merges the answers.
type Agent struct {
	models []domain.ChatModel
}

func New(models ...domain.ChatModel) *Agent {
	return &Agent{models: models}
}

// Analyze asks every configured model for an analysis in parallel.
// A single model failing degrades the consensus; all failing is fatal.
func (a *Agent) Analyze(ctx context.Context, bundle *domain.RetrievalBundle) (*domain.MergedAnalysis, []domain.LLMAnalysis, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	if len(a.models) == 0 {
		return nil, nil, fmt.Errorf("no chat models configured")
	}

	prompt := buildPrompt(bundle)

	analyses := make([]*domain.LLMAnalysis, len(a.models))
	g, gctx := errgroup.WithContext(ctx)
	for i, model := range a.models {
		g.Go(func() error {
			analysis, err := a.analyzeWith(gctx, model, prompt)
			if err != nil {
				slog.Warn("Model analysis failed", "provider", model.Provider(), "error", err)
				return nil // degraded consensus, not fatal
			}
			analyses[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, nil, err
	}

	var successful []domain.LLMAnalysis
	for _, analysis := range analyses {
		if analysis != nil {
			successful = append(successful, *analysis)
		}
	}
	if len(successful) == 0 {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, nil, fmt.Errorf("all reasoning models failed")
	}

	merged := Merge(successful)
	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return merged, successful, nil
}

func (a *Agent) analyzeWith(ctx context.Context, model domain.ChatModel, prompt string) (*domain.LLMAnalysis, error) {
	raw, err := model.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", model.Provider(), err)
	}
	analysis.Provider = model.Provider()
	return analysis, nil
}

// ParseAnalysis decodes a model response, tolerating code fences and
// surrounding prose around the JSON object.
func ParseAnalysis(raw string) (*domain.LLMAnalysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var analysis domain.LLMAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, err
	}
	if analysis.PrimaryDiagnosis == "" {
		return nil, fmt.Errorf("response missing primary diagnosis")
	}
	if analysis.Confidence < 0 || analysis.Confidence > 1 {
		analysis.Confidence = clamp01(analysis.Confidence)
	}
	return &analysis, nil
}

// Merge reconciles analyses: averaged confidence, union of
// differentials, and consensus level from the confidence spread.
func Merge(analyses []domain.LLMAnalysis) *domain.MergedAnalysis {
	merged := &domain.MergedAnalysis{}

	var confidenceSum float64
	seen := map[string]bool{}
	for _, analysis := range analyses {
		merged.Sources = append(merged.Sources, analysis.Provider)
		confidenceSum += analysis.Confidence
		for _, d := range analysis.Differentials {
			key := strings.ToLower(strings.TrimSpace(d))
			if key != "" && !seen[key] {
				seen[key] = true
				merged.Differentials = append(merged.Differentials, d)
			}
		}
	}
	merged.Confidence = confidenceSum / float64(len(analyses))

	// Primary diagnosis from the most confident model
	best := analyses[0]
	for _, analysis := range analyses[1:] {
		if analysis.Confidence > best.Confidence {
			best = analysis
		}
	}
	merged.PrimaryDiagnosis = best.PrimaryDiagnosis
	merged.Reasoning = best.Findings

	merged.Consensus = domain.ConsensusModerate
	if len(analyses) > 1 && confidenceSpread(analyses) < consensusDelta {
		merged.Consensus = domain.ConsensusHigh
	}
	return merged
}

func confidenceSpread(analyses []domain.LLMAnalysis) float64 {
	min, max := analyses[0].Confidence, analyses[0].Confidence
	for _, a := range analyses[1:] {
		if a.Confidence < min {
			min = a.Confidence
		}
		if a.Confidence > max {
			max = a.Confidence
		}
	}
	return max - min
}

func buildPrompt(bundle *domain.RetrievalBundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clinical context: %s\n\n", bundle.ClinicalContext)

	for modality, results := range bundle.ByModality {
		if len(results) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Evidence from %s:\n", modality)
		for _, r := range results {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
		b.WriteString("\n")
	}

	if len(bundle.Timeline) > 0 {
		b.WriteString("Patient timeline (oldest first):\n")
		for _, r := range bundle.Timeline {
			fmt.Fprintf(&b, "- [%s] %s\n", r.Timestamp.Format("2006-01-02"), r.Text)
		}
		b.WriteString("\n")
	}

	if len(bundle.SimilarCases) > 0 {
		b.WriteString("Similar cases from other patients (anonymized):\n")
		for _, r := range bundle.SimilarCases {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
	}
	return b.String()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
