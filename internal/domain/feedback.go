package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackType classifies a doctor's verdict on a generated report.
type FeedbackType string

const (
	FeedbackCorrect          FeedbackType = "correct"
	FeedbackPartiallyCorrect FeedbackType = "partially_correct"
	FeedbackIncorrect        FeedbackType = "incorrect"
)

// ConfidenceDelta returns the memory reinforcement applied for this
// feedback type. Incorrect feedback lowers confidence less than correct
// feedback raises it, so a single disagreement never erases a memory.
func (t FeedbackType) ConfidenceDelta() float64 {
	switch t {
	case FeedbackCorrect:
		return 0.10
	case FeedbackPartiallyCorrect:
		return 0.05
	case FeedbackIncorrect:
		return -0.08
	default:
		return 0
	}
}

// DoctorFeedback records one clinician review of a report.
type DoctorFeedback struct {
	ID          uuid.UUID    `json:"feedback_id"`
	ReportID    uuid.UUID    `json:"report_id"`
	DoctorID    string       `json:"doctor_id"`
	DoctorName  string       `json:"doctor_name"`
	Type        FeedbackType `json:"feedback_type"`
	Transcript  string       `json:"transcript,omitempty"`
	Corrections string       `json:"corrections,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
