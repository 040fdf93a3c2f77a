package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

type fakeModel struct {
	response string
	err      error
}

func (f *fakeModel) Provider() string { return "gemini" }

func (f *fakeModel) Complete(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func audioData(transcript string) domain.MedicalData {
	return domain.MedicalData{
		ID:       uuid.New(),
		Modality: domain.ModalityAudio,
		DataType: "patient_voice",
		FilePath: "/uploads/voice_note.wav",
		Content:  transcript,
		Metadata: map[string]any{"speaker_id": "patient"},
	}
}

func TestEmotionScores(t *testing.T) {
	scores := EmotionScores("The pain is severe and I am worried it is getting worse")

	assert.Greater(t, scores["pain"], 0.0)
	assert.Greater(t, scores["worry"], 0.0)
	assert.Zero(t, scores["relief"])
}

func TestClinicalSentiment(t *testing.T) {
	assert.Equal(t, "negative", ClinicalSentiment(map[string]float64{"pain": 0.5, "relief": 0.1}))
	assert.Equal(t, "positive", ClinicalSentiment(map[string]float64{"relief": 0.4, "worry": 0.1}))
	assert.Equal(t, "neutral", ClinicalSentiment(map[string]float64{}))
}

func TestProcess_WithModel(t *testing.T) {
	agent := New(&fakeModel{response: "Patient reports severe chest pain radiating to the left arm."})

	result, err := agent.Process(context.Background(), audioData("the pain in my chest is severe, I'm scared"))
	require.NoError(t, err)

	assert.Equal(t, "speech_agent", result.Agent)
	assert.Contains(t, result.Summary, "chest pain")
	assert.InDelta(t, 0.8, result.Confidence, 0.001)
	assert.Equal(t, "negative", result.Findings["clinical_sentiment"])
	assert.Equal(t, "gemini", result.Findings["model"])
}

func TestProcess_NoTranscript(t *testing.T) {
	agent := New(nil)

	result, err := agent.Process(context.Background(), audioData(""))
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "manual transcription required")
	assert.InDelta(t, 0.2, result.Confidence, 0.001)
}

func TestProcess_ModelErrorKeepsSentiment(t *testing.T) {
	agent := New(&fakeModel{err: errors.New("quota exceeded")})

	result, err := agent.Process(context.Background(), audioData("feeling much better since the new medication, real relief"))
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "positive")
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
	assert.Equal(t, "positive", result.Findings["clinical_sentiment"])
}
