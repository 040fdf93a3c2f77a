// Package recommendation turns a diagnosis and risk assessment into an
// actionable care plan: medications with evidence levels,
// investigations, monitoring, lifestyle advice, precautions and a
// follow-up schedule.
package recommendation

import (
	"context"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "recommendation_agent"

// medicationRules keys first-line medication suggestions by a keyword
// found in the diagnosis text.
var medicationRules = map[string][]domain.Recommendation{
	"hypertension": {
		{Name: "Amlodipine", Detail: "5 mg once daily", Rationale: "First-line calcium channel blocker", Evidence: domain.EvidenceA},
		{Name: "Lisinopril", Detail: "10 mg once daily", Rationale: "ACE inhibitor, renal protective in diabetics", Evidence: domain.EvidenceA},
	},
	"diabetes": {
		{Name: "Metformin", Detail: "500 mg twice daily with meals", Rationale: "First-line glycemic control", Evidence: domain.EvidenceA},
	},
	"coronary": {
		{Name: "Aspirin", Detail: "75 mg once daily", Rationale: "Antiplatelet for secondary prevention", Evidence: domain.EvidenceA},
		{Name: "Atorvastatin", Detail: "40 mg once daily at night", Rationale: "High-intensity statin", Evidence: domain.EvidenceA},
	},
	"myocardial infarction": {
		{Name: "Aspirin", Detail: "300 mg loading, then 75 mg daily", Rationale: "Antiplatelet therapy", Evidence: domain.EvidenceA},
		{Name: "Metoprolol", Detail: "25 mg twice daily", Rationale: "Beta blockade post-MI", Evidence: domain.EvidenceA},
	},
	"pneumonia": {
		{Name: "Amoxicillin", Detail: "500 mg three times daily for 5 days", Rationale: "Empirical cover for community-acquired pneumonia", Evidence: domain.EvidenceB},
	},
	"asthma": {
		{Name: "Salbutamol inhaler", Detail: "2 puffs as needed", Rationale: "Short-acting bronchodilator", Evidence: domain.EvidenceA},
		{Name: "Budesonide inhaler", Detail: "200 mcg twice daily", Rationale: "Inhaled corticosteroid maintenance", Evidence: domain.EvidenceA},
	},
	"hyperlipidemia": {
		{Name: "Atorvastatin", Detail: "20 mg once daily", Rationale: "Lipid lowering", Evidence: domain.EvidenceA},
	},
}

// investigationRules maps diagnosis keywords to recommended tests.
var investigationRules = map[string][]string{
	"coronary":              {"12-lead ECG immediately", "Serial troponin levels", "Echocardiogram"},
	"myocardial infarction": {"12-lead ECG immediately", "Serial troponin levels", "Coronary angiography"},
	"pneumonia":             {"Chest X-ray", "Blood cultures before antibiotics", "Complete blood count"},
	"sepsis":                {"Blood cultures before antibiotics", "Serum lactate", "Complete blood count"},
	"diabetes":              {"HbA1c", "Fasting lipid profile", "Renal function panel"},
	"hypertension":          {"Renal function panel", "Urinalysis", "ECG for LVH assessment"},
	"stroke":                {"Non-contrast head CT immediately", "Carotid doppler", "Coagulation profile"},
}

// lifestyleRules maps diagnosis keywords to lifestyle advice.
var lifestyleRules = map[string][]string{
	"hypertension":   {"Reduce sodium below 2g/day", "Moderate exercise 30 min, 5 days/week"},
	"diabetes":       {"Low glycemic index diet", "Self-monitor blood glucose as directed"},
	"coronary":       {"Smoking cessation", "Cardiac rehabilitation program"},
	"hyperlipidemia": {"Reduce saturated fat intake", "Regular aerobic exercise"},
}

// followUpByRisk maps the risk level to the follow-up schedule.
var followUpByRisk = map[domain.RiskLevel]string{
	domain.RiskCritical: "Review within 24 hours; immediate return if symptoms worsen",
	domain.RiskHigh:     "Review within 3 days",
	domain.RiskModerate: "Review in 2 weeks",
	domain.RiskLow:      "Routine review in 1-3 months",
}

var basePrecautions = []string{
	"Take medications exactly as prescribed",
	"Report persistent side effects to your provider",
	"Inform all providers of current medications",
}

// Agent builds care plans.
type Agent struct{}

func New() *Agent { return &Agent{} }

// Plan assembles the complete care plan for the given diagnoses and
// risk assessment.
func (a *Agent) Plan(_ context.Context, diagnoses []string, risk domain.RiskAssessment) domain.CarePlan {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	plan := domain.CarePlan{
		Medications:    Medications(diagnoses),
		Investigations: matchRules(diagnoses, investigationRules),
		Lifestyle:      matchRules(diagnoses, lifestyleRules),
		Monitoring:     monitoringPlan(risk),
		Precautions:    precautions(risk),
		FollowUp:       FollowUpFor(risk.Level),
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return plan
}

// Medications suggests first-line medications for the diagnoses,
// deduplicated by drug name.
func Medications(diagnoses []string) []domain.Recommendation {
	var out []domain.Recommendation
	seen := map[string]bool{}
	for _, diagnosis := range diagnoses {
		lower := strings.ToLower(diagnosis)
		for keyword, meds := range medicationRules {
			if !strings.Contains(lower, keyword) {
				continue
			}
			for _, med := range meds {
				if seen[med.Name] {
					continue
				}
				seen[med.Name] = true
				out = append(out, med)
			}
		}
	}
	return out
}

// FollowUpFor returns the follow-up schedule for a risk level.
func FollowUpFor(level domain.RiskLevel) string {
	if schedule, ok := followUpByRisk[level]; ok {
		return schedule
	}
	return followUpByRisk[domain.RiskLow]
}

func matchRules(diagnoses []string, rules map[string][]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, diagnosis := range diagnoses {
		lower := strings.ToLower(diagnosis)
		for keyword, items := range rules {
			if !strings.Contains(lower, keyword) {
				continue
			}
			for _, item := range items {
				if seen[item] {
					continue
				}
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	return out
}

func monitoringPlan(risk domain.RiskAssessment) []string {
	plan := []string{"Daily symptom assessment"}
	switch risk.Level {
	case domain.RiskCritical:
		plan = append(plan, "Continuous vital sign monitoring")
	case domain.RiskHigh:
		plan = append(plan, "Vital signs every 4-8 hours")
	default:
		plan = append(plan, "Vital signs at each visit")
	}
	if risk.MortalityScore > 0.1 {
		plan = append(plan, "Escalate to intensive monitoring if deterioration")
	}
	return plan
}

func precautions(risk domain.RiskAssessment) []string {
	out := append([]string{}, basePrecautions...)
	if risk.Level == domain.RiskCritical || risk.Level == domain.RiskHigh {
		out = append(out, "Seek emergency care for chest pain, breathlessness or loss of consciousness")
	}
	return out
}
