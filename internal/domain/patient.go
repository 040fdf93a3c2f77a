package domain

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord is the master record for a patient.
type PatientRecord struct {
	ID             uuid.UUID `json:"patient_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DateOfBirth    string    `json:"date_of_birth"`
	Gender         string    `json:"gender"`
	Contact        string    `json:"contact"`
	MedicalHistory string    `json:"medical_history"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName returns the display name used in reports.
func (p PatientRecord) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return "Unknown"
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
