// Package nlp extracts clinical entities from free-text documents:
// symptoms, diagnoses, medications with dosage, allergies and vitals.
package nlp

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "nlp_agent"

// Clinical lexicons. A production deployment would swap these for a
// biomedical NER model; the lookup path stays the same.
var (
	symptomTerms = []string{
		"chest pain", "shortness of breath", "headache", "dizziness", "nausea",
		"vomiting", "fatigue", "fever", "cough", "palpitations", "syncope",
		"abdominal pain", "back pain", "weakness", "confusion", "sweating",
		"wheezing", "swelling", "rash", "blurred vision", "weight loss",
	}
	diagnosisTerms = []string{
		"hypertension", "diabetes", "pneumonia", "asthma", "copd",
		"myocardial infarction", "heart failure", "atrial fibrillation",
		"stroke", "sepsis", "anemia", "hyperlipidemia", "hypothyroidism",
		"chronic kidney disease", "acute coronary syndrome", "angina",
		"bronchitis", "urinary tract infection", "depression", "anxiety",
	}
	medicationTerms = []string{
		"aspirin", "metformin", "lisinopril", "atorvastatin", "amlodipine",
		"metoprolol", "omeprazole", "albuterol", "insulin", "warfarin",
		"clopidogrel", "furosemide", "losartan", "levothyroxine", "ibuprofen",
		"paracetamol", "amoxicillin", "azithromycin", "prednisone", "gabapentin",
	}
	negationMarkers = []string{"no ", "not ", "denies ", "without ", "negative for ", "ruled out "}

	dosagePattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|units?)\b`)
	bpPattern        = regexp.MustCompile(`(?i)\b(?:bp|blood pressure)[:\s]*(\d{2,3})\s*/\s*(\d{2,3})\b`)
	hrPattern        = regexp.MustCompile(`(?i)\b(?:hr|heart rate|pulse)[:\s]*(\d{2,3})\b`)
	spo2Pattern      = regexp.MustCompile(`(?i)\b(?:spo2|oxygen saturation|o2 sat)[:\s]*(\d{2,3})\s*%?`)
	tempPattern      = regexp.MustCompile(`(?i)\b(?:temp|temperature)[:\s]*(\d{2,3}(?:\.\d+)?)\b`)
	allergyPattern   = regexp.MustCompile(`(?i)allerg(?:y|ies|ic)(?:\s+to)?[:\s]+([a-z][a-z\s,]+?)(?:\.|\n|$)`)
	improvementTerms = []string{"improving", "improved", "better", "resolved", "stable", "recovering"}
	worseningTerms   = []string{"worsening", "worse", "deteriorating", "severe", "critical", "declining"}
)

// Medication is one extracted drug mention with dosage if present.
type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
}

// Entity is a single extracted mention, flagged when negated.
type Entity struct {
	Text    string `json:"text"`
	Negated bool   `json:"negated,omitempty"`
}

// Relationship links two extracted entities, e.g. a medication that
// treats a co-mentioned diagnosis.
type Relationship struct {
	Entity1     string `json:"entity1"`
	Entity1Type string `json:"entity1_type"`
	Relation    string `json:"relationship"`
	Entity2     string `json:"entity2"`
	Entity2Type string `json:"entity2_type"`
}

// Analysis is the full NLP output for one document.
type Analysis struct {
	DocumentType  string            `json:"document_type"`
	Symptoms      []Entity          `json:"symptoms"`
	Diagnoses     []Entity          `json:"diagnoses"`
	Medications   []Medication      `json:"medications"`
	Allergies     []string          `json:"allergies"`
	VitalSigns    map[string]string `json:"vital_signs"`
	Relationships []Relationship    `json:"relationships"`
	Sentiment     string            `json:"sentiment"`
	EntityCount   int               `json:"entity_count"`
}

// Agent performs lexicon-based clinical entity extraction.
type Agent struct{}

func New() *Agent { return &Agent{} }

// Analyze runs the full extraction on one text document.
func (a *Agent) Analyze(text, documentType string) Analysis {
	lower := strings.ToLower(text)

	analysis := Analysis{
		DocumentType: documentType,
		Symptoms:     findEntities(lower, symptomTerms),
		Diagnoses:    findEntities(lower, diagnosisTerms),
		Medications:  findMedications(lower),
		Allergies:    findAllergies(text),
		VitalSigns:   findVitals(text),
		Sentiment:    assessSentiment(lower),
	}
	analysis.Relationships = findRelationships(lower, analysis.Medications, analysis.Diagnoses)
	analysis.EntityCount = len(analysis.Symptoms) + len(analysis.Diagnoses) +
		len(analysis.Medications) + len(analysis.Allergies) + len(analysis.VitalSigns)
	return analysis
}

// findRelationships links medications to the diagnoses they plausibly
// treat. Only co-mentions within one sentence are linked, and negated
// diagnoses never get a treatment edge.
func findRelationships(lower string, medications []Medication, diagnoses []Entity) []Relationship {
	if len(medications) == 0 || len(diagnoses) == 0 {
		return nil
	}

	var relationships []Relationship
	for _, sentence := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	}) {
		for _, med := range medications {
			if !strings.Contains(sentence, med.Name) {
				continue
			}
			for _, diag := range diagnoses {
				if diag.Negated || !strings.Contains(sentence, diag.Text) {
					continue
				}
				relationships = append(relationships, Relationship{
					Entity1:     med.Name,
					Entity1Type: "medication",
					Relation:    "treats",
					Entity2:     diag.Text,
					Entity2Type: "diagnosis",
				})
			}
		}
	}
	return relationships
}

// Process implements the ingestion handler contract.
func (a *Agent) Process(_ context.Context, data domain.MedicalData) (domain.ModalityResult, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	analysis := a.Analyze(data.Content, data.DataType)
	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()

	return domain.ModalityResult{
		Agent:    agentName,
		Summary:  summarize(analysis),
		Findings: map[string]any{"analysis": analysis},
		// Fewer recognized entities means lower certainty in the extraction
		Confidence: extractionConfidence(analysis),
		Status:     "completed",
	}, nil
}

func findEntities(lower string, terms []string) []Entity {
	var found []Entity
	for _, term := range terms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		found = append(found, Entity{Text: term, Negated: isNegated(lower, idx)})
	}
	return found
}

// isNegated checks for a negation marker within the 40 characters
// preceding the mention, bounded by sentence punctuation.
func isNegated(lower string, idx int) bool {
	windowStart := idx - 40
	if windowStart < 0 {
		windowStart = 0
	}
	window := lower[windowStart:idx]
	if cut := strings.LastIndexAny(window, ".;\n"); cut >= 0 {
		window = window[cut+1:]
	}
	for _, marker := range negationMarkers {
		if strings.Contains(window, marker) {
			return true
		}
	}
	return false
}

func findMedications(lower string) []Medication {
	var meds []Medication
	for _, term := range medicationTerms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		med := Medication{Name: term}

		// Look for a dosage right after the drug name
		tail := lower[idx+len(term):]
		if len(tail) > 30 {
			tail = tail[:30]
		}
		if m := dosagePattern.FindStringSubmatch(tail); m != nil {
			med.Dosage = m[1] + m[2]
		}
		meds = append(meds, med)
	}
	return meds
}

func findAllergies(text string) []string {
	m := allergyPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var allergies []string
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		part = strings.TrimSuffix(part, " and")
		if part != "" && part != "none" && part != "nkda" {
			allergies = append(allergies, part)
		}
	}
	return allergies
}

func findVitals(text string) map[string]string {
	vitals := make(map[string]string)
	if m := bpPattern.FindStringSubmatch(text); m != nil {
		vitals["blood_pressure"] = m[1] + "/" + m[2]
	}
	if m := hrPattern.FindStringSubmatch(text); m != nil {
		vitals["heart_rate"] = m[1]
	}
	if m := spo2Pattern.FindStringSubmatch(text); m != nil {
		vitals["oxygen_saturation"] = m[1]
	}
	if m := tempPattern.FindStringSubmatch(text); m != nil {
		vitals["temperature"] = m[1]
	}
	if len(vitals) == 0 {
		return nil
	}
	return vitals
}

func assessSentiment(lower string) string {
	var positive, negative int
	for _, term := range improvementTerms {
		positive += strings.Count(lower, term)
	}
	for _, term := range worseningTerms {
		negative += strings.Count(lower, term)
	}
	switch {
	case negative > positive:
		return "negative"
	case positive > negative:
		return "positive"
	default:
		return "neutral"
	}
}

func extractionConfidence(a Analysis) float64 {
	switch {
	case a.EntityCount >= 5:
		return 0.9
	case a.EntityCount >= 2:
		return 0.75
	case a.EntityCount >= 1:
		return 0.6
	default:
		return 0.3
	}
}

func summarize(a Analysis) string {
	var parts []string
	if n := len(a.Symptoms); n > 0 {
		parts = append(parts, pluralize(n, "symptom"))
	}
	if n := len(a.Diagnoses); n > 0 {
		parts = append(parts, pluralize(n, "diagnosis"))
	}
	if n := len(a.Medications); n > 0 {
		parts = append(parts, pluralize(n, "medication"))
	}
	if len(parts) == 0 {
		return "no clinical entities extracted"
	}
	return "extracted " + strings.Join(parts, ", ")
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if word == "diagnosis" {
		return strconv.Itoa(n) + " diagnoses"
	}
	return strconv.Itoa(n) + " " + word + "s"
}
