// Package narrator renders consolidated reports as readable narratives:
// a plain-language version for patients and a clinical version for
// providers, translated on demand.
package narrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

// NarrativeType selects the audience a narrative is written for.
type NarrativeType string

const (
	PatientFriendly     NarrativeType = "patient_friendly"
	MedicalProfessional NarrativeType = "medical_professional"
)

// supportedLanguages maps narration language codes to display names.
var supportedLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"pt": "Portuguese",
	"zh": "Chinese (Mandarin)",
	"ja": "Japanese",
}

// Translator converts a narrative into another language.
type Translator interface {
	Translate(ctx context.Context, text, language string) (string, error)
}

// Narration is one rendered narrative.
type Narration struct {
	Language           string        `json:"language"`
	Type               NarrativeType `json:"narrative_type"`
	Text               string        `json:"narrative_text"`
	AvailableLanguages []string      `json:"available_languages"`
}

// Narrator renders and translates report narratives.
type Narrator struct {
	translator Translator
}

func New(translator Translator) *Narrator {
	return &Narrator{translator: translator}
}

// SupportedLanguages returns the narration language codes, sorted.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Narrate renders the requested narrative and translates it when the
// target language is not English.
func (n *Narrator) Narrate(ctx context.Context, report *domain.ConsolidatedReport, summary *domain.ClinicalIntelligenceSummary, language string, narrativeType NarrativeType) (*Narration, error) {
	if _, ok := supportedLanguages[language]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, language)
	}

	var text string
	switch narrativeType {
	case MedicalProfessional:
		text = Professional(report, summary)
	default:
		text = Patient(report)
	}

	if language != "en" {
		if n.translator == nil {
			return nil, fmt.Errorf("translation to %s requested but no translator configured", supportedLanguages[language])
		}
		translated, err := n.translator.Translate(ctx, text, supportedLanguages[language])
		if err != nil {
			return nil, fmt.Errorf("failed to translate narrative: %w", err)
		}
		text = translated
	}

	return &Narration{
		Language:           language,
		Type:               narrativeType,
		Text:               text,
		AvailableLanguages: SupportedLanguages(),
	}, nil
}

// Patient renders the plain-language narrative for patients.
func Patient(report *domain.ConsolidatedReport) string {
	var b strings.Builder
	b.WriteString("PATIENT REPORT SUMMARY\n\n")

	if report.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Your health concern:\n%s\n\n", report.ChiefComplaint)
	}
	if report.PatientVoice != "" {
		fmt.Fprintf(&b, "In your words:\n%s\n\n", report.PatientVoice)
	}

	fmt.Fprintf(&b, "Our assessment:\n%s\n\n", report.ImagingFindings)
	fmt.Fprintf(&b, "Your diagnosis:\n%s\n\n", report.PrimaryDiagnosis)

	b.WriteString("What you need to do:\n")
	for _, med := range report.Medications {
		fmt.Fprintf(&b, "- Take %s (%s)\n", med.Name, med.Detail)
	}
	b.WriteString("- Keep all follow-up appointments\n")
	b.WriteString("- Follow lifestyle recommendations\n\n")

	if len(report.Precautions) > 0 {
		fmt.Fprintf(&b, "Important safety notes:\n%s\n\n", strings.Join(report.Precautions, "\n"))
	}
	fmt.Fprintf(&b, "Next steps:\n%s\n\n", report.FollowUp)
	b.WriteString("If you have questions, please contact your healthcare provider.\n")
	return b.String()
}

// Professional renders the clinical narrative for providers.
func Professional(report *domain.ConsolidatedReport, summary *domain.ClinicalIntelligenceSummary) string {
	var b strings.Builder
	b.WriteString("CLINICAL INTELLIGENCE SUMMARY\n\n")

	fmt.Fprintf(&b, "Patient: %s (ID %s)\n", report.PatientName, report.PatientID)
	fmt.Fprintf(&b, "Visit date: %s\n\n", report.VisitDate.Format("2006-01-02"))

	if report.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n\n", report.ChiefComplaint)
	}

	fmt.Fprintf(&b, "Primary diagnosis: %s (confidence %.0f%%)\n", report.PrimaryDiagnosis, report.Confidence*100)
	fmt.Fprintf(&b, "Severity: %s, urgency %s\n", report.Severity, domain.UrgencyFor(report.Severity))
	if len(report.Differentials) > 0 {
		b.WriteString("Differential diagnoses:\n")
		for _, d := range report.Differentials {
			fmt.Fprintf(&b, "- %s (%.0f%%)\n", d.Diagnosis, d.Confidence*100)
		}
	}

	fmt.Fprintf(&b, "\nImaging findings: %s\n", report.ImagingFindings)

	if len(report.Medications) > 0 {
		b.WriteString("\nTreatment plan:\n")
		for _, med := range report.Medications {
			fmt.Fprintf(&b, "- %s %s (evidence level %s): %s\n", med.Name, med.Detail, med.Evidence, med.Rationale)
		}
	}
	if len(report.InvestigationsNeeded) > 0 {
		fmt.Fprintf(&b, "\nInvestigations: %s\n", strings.Join(report.InvestigationsNeeded, ", "))
	}

	fmt.Fprintf(&b, "\nFollow-up: %s\n", report.FollowUp)
	fmt.Fprintf(&b, "\nEvidence summary: %s\n", report.EvidenceSummary)
	if summary != nil {
		fmt.Fprintf(&b, "Overall risk score: %.2f\n", summary.RiskScore)
		fmt.Fprintf(&b, "Ethical considerations: %s\n", summary.EthicalNotes)
	}

	b.WriteString("\nGenerated by automated multi-modal analysis; requires clinician review and validation.\n")
	return b.String()
}

// ExportDocument renders the printable report used by the export API.
func ExportDocument(report *domain.ConsolidatedReport) string {
	var b strings.Builder
	b.WriteString("CLINICAL REPORT\n\n")
	fmt.Fprintf(&b, "Patient: %s\n", report.PatientName)
	fmt.Fprintf(&b, "Date: %s\n\n", report.VisitDate.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Diagnosis: %s\n", report.PrimaryDiagnosis)
	fmt.Fprintf(&b, "Severity: %s\n\n", report.Severity)

	if len(report.Medications) > 0 {
		b.WriteString("Medications:\n")
		for _, med := range report.Medications {
			fmt.Fprintf(&b, "- %s %s\n", med.Name, med.Detail)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Follow-up: %s\n\n", report.FollowUp)
	if report.NeedsReview {
		b.WriteString("NOTE: This report is pending clinician review.\n")
	}
	b.WriteString("Generated by automated clinical analysis.\n")
	return b.String()
}
