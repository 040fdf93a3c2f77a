// Package speech processes medical audio: patient voice notes, doctor
// dictations and feedback recordings. Transcripts are analyzed for
// clinical sentiment and emotional markers; a chat model, when
// configured, adds a clinical summary.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "speech_agent"

const systemPrompt = `You are a clinical scribe. Given a transcript of medical audio, summarize the
clinically relevant content: symptoms, complaints, medications mentioned, and any events described.`

// emotionLexicon maps emotional dimensions to their linguistic markers.
var emotionLexicon = map[string][]string{
	"pain":        {"pain", "hurts", "aching", "severe", "unbearable", "burning"},
	"worry":       {"worried", "scared", "afraid", "anxious", "nervous", "concern"},
	"relief":      {"better", "improving", "relief", "relieved", "easier", "good"},
	"frustration": {"frustrated", "tired of", "fed up", "annoyed", "again and again"},
}

const (
	llmConfidence      = 0.8
	fallbackConfidence = 0.5
)

// Agent is the audio modality handler.
type Agent struct {
	model domain.ChatModel
}

func New(model domain.ChatModel) *Agent {
	return &Agent{model: model}
}

// EmotionScores counts lexicon hits per emotional dimension in a
// transcript, normalized to 0..1 by marker count.
func EmotionScores(transcript string) map[string]float64 {
	lower := strings.ToLower(transcript)

	scores := make(map[string]float64, len(emotionLexicon))
	for emotion, markers := range emotionLexicon {
		var hits int
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				hits++
			}
		}
		scores[emotion] = float64(hits) / float64(len(markers))
	}
	return scores
}

// ClinicalSentiment reduces emotion scores to a sentiment label.
func ClinicalSentiment(scores map[string]float64) string {
	negative := scores["pain"] + scores["worry"] + scores["frustration"]
	positive := scores["relief"]

	switch {
	case negative > positive:
		return "negative"
	case positive > negative:
		return "positive"
	default:
		return "neutral"
	}
}

// Process analyzes one audio item. The transcript is expected in the
// item content; recordings without transcription are marked for manual
// review rather than rejected.
func (a *Agent) Process(ctx context.Context, data domain.MedicalData) (domain.ModalityResult, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	result := domain.ModalityResult{
		Agent:    agentName,
		Modality: domain.ModalityAudio,
		Findings: map[string]any{"audio_type": data.DataType},
	}

	if data.Content == "" {
		result.Summary = "Audio recording received without transcript; manual transcription required"
		result.Confidence = 0.2
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
		return result, nil
	}

	scores := EmotionScores(data.Content)
	sentiment := ClinicalSentiment(scores)
	result.Findings["emotion_scores"] = scores
	result.Findings["clinical_sentiment"] = sentiment
	result.Findings["transcript"] = data.Content

	if a.model == nil {
		result.Summary = fmt.Sprintf("Transcript of %s analyzed; clinical sentiment %s", data.DataType, sentiment)
		result.Confidence = fallbackConfidence
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
		return result, nil
	}

	summary, err := a.model.Complete(ctx, systemPrompt, buildPrompt(data))
	if err != nil {
		slog.Warn("Speech model summary failed, using sentiment-only analysis", "data_id", data.ID, "error", err)
		result.Summary = fmt.Sprintf("Transcript of %s analyzed; clinical sentiment %s", data.DataType, sentiment)
		result.Confidence = fallbackConfidence
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "degraded").Inc()
		return result, nil
	}

	result.Summary = summary
	result.Confidence = llmConfidence
	result.Findings["model"] = a.model.Provider()
	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return result, nil
}

func buildPrompt(data domain.MedicalData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audio type: %s\n", data.DataType)
	if speaker, ok := data.Metadata["speaker_id"].(string); ok && speaker != "" {
		fmt.Fprintf(&b, "Speaker: %s\n", speaker)
	}
	fmt.Fprintf(&b, "Transcript:\n%s\n", data.Content)
	return b.String()
}
