// Package vision analyzes medical imaging: X-rays, MRI, CT, ultrasound
// and scanned documents. Interpretation is delegated to a vision-capable
// chat model; without one the agent falls back to a metadata summary.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "vision_agent"

const systemPrompt = `You are a radiology assistant. Analyze the described medical image systematically:
assess quality, review anatomy region by region, identify abnormalities, and state your confidence.
Summarize findings in plain clinical language.`

// modalityGuidance tailors the analysis prompt to the imaging type.
var modalityGuidance = map[string]string{
	"x-ray":      "Assess bone integrity and alignment, lung fields, cardiac silhouette, and any fractures or abnormal densities.",
	"mri":        "Assess signal intensity patterns, structural abnormalities, white matter changes, and lesions or masses.",
	"ct":         "Assess bone structure, soft tissue densities, vascular structures, and organ size and position.",
	"ultrasound": "Assess organ measurements, echogenicity, masses or cystic lesions, and fluid collections.",
}

const (
	llmConfidence      = 0.85
	fallbackConfidence = 0.4
)

// Agent is the imaging modality handler.
type Agent struct {
	model domain.ChatModel
}

func New(model domain.ChatModel) *Agent {
	return &Agent{model: model}
}

// Process analyzes one imaging item. A missing or failing model
// degrades to a metadata-only summary rather than failing the item.
func (a *Agent) Process(ctx context.Context, data domain.MedicalData) (domain.ModalityResult, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	result := domain.ModalityResult{
		Agent:    agentName,
		Modality: domain.ModalityImaging,
		Findings: map[string]any{
			"imaging_type": data.DataType,
			"file":         filepath.Base(data.FilePath),
		},
	}

	if a.model == nil {
		result.Summary = fallbackSummary(data)
		result.Confidence = fallbackConfidence
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
		return result, nil
	}

	analysis, err := a.model.Complete(ctx, systemPrompt, buildPrompt(data))
	if err != nil {
		slog.Warn("Vision model analysis failed, using metadata summary", "data_id", data.ID, "error", err)
		result.Summary = fallbackSummary(data)
		result.Confidence = fallbackConfidence
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "degraded").Inc()
		return result, nil
	}

	result.Summary = analysis
	result.Confidence = llmConfidence
	result.Findings["model"] = a.model.Provider()
	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return result, nil
}

func buildPrompt(data domain.MedicalData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imaging type: %s (%s file)\n", data.DataType, data.FileFormat)

	if guidance, ok := modalityGuidance[strings.ToLower(data.DataType)]; ok {
		b.WriteString(guidance + "\n")
	}
	if context, ok := data.Metadata["clinical_context"].(string); ok && context != "" {
		fmt.Fprintf(&b, "Clinical context: %s\n", context)
	}
	if data.Content != "" {
		fmt.Fprintf(&b, "Image description / extracted text:\n%s\n", data.Content)
	}
	return b.String()
}

func fallbackSummary(data domain.MedicalData) string {
	summary := fmt.Sprintf("%s imaging received (%s); automated interpretation unavailable, pending radiologist review",
		data.DataType, filepath.Base(data.FilePath))
	if data.Content != "" {
		summary += ". Attached description: " + data.Content
	}
	return summary
}
