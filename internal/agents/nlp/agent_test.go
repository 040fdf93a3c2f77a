package nlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

const sampleNote = `Patient presents with chest pain and shortness of breath for 2 days.
History of hypertension and diabetes. Denies fever or cough.
Currently on Aspirin 75mg daily and Metformin 500mg twice daily.
Allergies: penicillin, sulfa drugs.
BP: 150/95, HR: 110, SpO2: 93%, Temp: 37.2
Condition worsening since yesterday.`

func TestAnalyze_ExtractsEntities(t *testing.T) {
	agent := New()
	analysis := agent.Analyze(sampleNote, "clinical_notes")

	symptomTexts := entityTexts(analysis.Symptoms)
	assert.Contains(t, symptomTexts, "chest pain")
	assert.Contains(t, symptomTexts, "shortness of breath")

	diagnosisTexts := entityTexts(analysis.Diagnoses)
	assert.Contains(t, diagnosisTexts, "hypertension")
	assert.Contains(t, diagnosisTexts, "diabetes")
}

func TestAnalyze_Negation(t *testing.T) {
	agent := New()
	analysis := agent.Analyze(sampleNote, "clinical_notes")

	var fever, chestPain *Entity
	for i := range analysis.Symptoms {
		switch analysis.Symptoms[i].Text {
		case "fever":
			fever = &analysis.Symptoms[i]
		case "chest pain":
			chestPain = &analysis.Symptoms[i]
		}
	}
	require.NotNil(t, fever)
	require.NotNil(t, chestPain)
	assert.True(t, fever.Negated)
	assert.False(t, chestPain.Negated)
}

func TestAnalyze_MedicationsWithDosage(t *testing.T) {
	agent := New()
	analysis := agent.Analyze(sampleNote, "clinical_notes")

	require.Len(t, analysis.Medications, 2)
	byName := map[string]Medication{}
	for _, m := range analysis.Medications {
		byName[m.Name] = m
	}
	assert.Equal(t, "75mg", byName["aspirin"].Dosage)
	assert.Equal(t, "500mg", byName["metformin"].Dosage)
}

func TestAnalyze_Allergies(t *testing.T) {
	agent := New()
	analysis := agent.Analyze(sampleNote, "clinical_notes")

	assert.Contains(t, analysis.Allergies, "penicillin")
	assert.Contains(t, analysis.Allergies, "sulfa drugs")
}

func TestAnalyze_VitalSigns(t *testing.T) {
	agent := New()
	analysis := agent.Analyze(sampleNote, "clinical_notes")

	assert.Equal(t, "150/95", analysis.VitalSigns["blood_pressure"])
	assert.Equal(t, "110", analysis.VitalSigns["heart_rate"])
	assert.Equal(t, "93", analysis.VitalSigns["oxygen_saturation"])
	assert.Equal(t, "37.2", analysis.VitalSigns["temperature"])
}

func TestAnalyze_RelationshipsLinkMedicationsToDiagnoses(t *testing.T) {
	agent := New()
	analysis := agent.Analyze("History of hypertension, managed with lisinopril 10mg daily.", "clinical_notes")

	require.Len(t, analysis.Relationships, 1)
	rel := analysis.Relationships[0]
	assert.Equal(t, "lisinopril", rel.Entity1)
	assert.Equal(t, "medication", rel.Entity1Type)
	assert.Equal(t, "treats", rel.Relation)
	assert.Equal(t, "hypertension", rel.Entity2)
	assert.Equal(t, "diagnosis", rel.Entity2Type)
}

func TestAnalyze_RelationshipsRespectSentenceBoundaries(t *testing.T) {
	agent := New()

	// Separate sentences: no link between the medication and the diagnosis.
	analysis := agent.Analyze("Started metformin today. Family history of hypertension.", "clinical_notes")
	assert.Empty(t, analysis.Relationships)

	// Negated diagnoses never get a treatment edge.
	analysis = agent.Analyze("Takes aspirin daily, hypertension ruled out, no diabetes on aspirin review.", "clinical_notes")
	for _, rel := range analysis.Relationships {
		assert.NotEqual(t, "diabetes", rel.Entity2)
	}
}

func TestAnalyze_Sentiment(t *testing.T) {
	agent := New()

	assert.Equal(t, "negative", agent.Analyze("condition worsening, severe distress", "notes").Sentiment)
	assert.Equal(t, "positive", agent.Analyze("patient improving, symptoms resolved", "notes").Sentiment)
	assert.Equal(t, "neutral", agent.Analyze("routine visit, vitals recorded", "notes").Sentiment)
}

func TestProcess_BuildsModalityResult(t *testing.T) {
	agent := New()
	result, err := agent.Process(context.Background(), domain.MedicalData{
		Content:  sampleNote,
		DataType: "clinical_notes",
		Modality: domain.ModalityText,
	})
	require.NoError(t, err)

	assert.Equal(t, "nlp_agent", result.Agent)
	assert.Equal(t, "completed", result.Status)
	assert.GreaterOrEqual(t, result.Confidence, 0.75)
	assert.Contains(t, result.Summary, "symptom")
}

func TestAnalyze_EmptyText(t *testing.T) {
	agent := New()
	analysis := agent.Analyze("", "clinical_notes")
	assert.Zero(t, analysis.EntityCount)
	assert.Equal(t, "neutral", analysis.Sentiment)
}

func entityTexts(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Text
	}
	return out
}
