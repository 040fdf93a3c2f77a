package domain

import (
	"time"

	"github.com/google/uuid"
)

// Modality identifies the kind of medical data an item carries.
type Modality string

const (
	ModalityImaging    Modality = "medical_imaging"
	ModalityAudio      Modality = "audio"
	ModalityText       Modality = "text"
	ModalityTimeSeries Modality = "timeseries"
)

// AllModalities lists every modality the ingestion layer routes.
var AllModalities = []Modality{ModalityImaging, ModalityAudio, ModalityText, ModalityTimeSeries}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityImaging, ModalityAudio, ModalityText, ModalityTimeSeries:
		return true
	}
	return false
}

// MedicalData is a single ingested item, routed to a modality handler.
type MedicalData struct {
	ID         uuid.UUID      `json:"data_id"`
	PatientID  uuid.UUID      `json:"patient_id"`
	Modality   Modality       `json:"modality"`
	DataType   string         `json:"data_type"`
	FilePath   string         `json:"file_path"`
	FileFormat string         `json:"file_format"`
	Content    string         `json:"content,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// ModalityResult is the output of a modality-specific agent for one item.
type ModalityResult struct {
	DataID     uuid.UUID      `json:"data_id"`
	Agent      string         `json:"agent"`
	Modality   Modality       `json:"modality"`
	Summary    string         `json:"summary"`
	Findings   map[string]any `json:"findings,omitempty"`
	Confidence float64        `json:"confidence"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// IngestionResult summarizes one multi-modal ingestion batch.
type IngestionResult struct {
	PatientID    uuid.UUID                    `json:"patient_id"`
	TotalItems   int                          `json:"total_items_ingested"`
	Rejected     int                          `json:"rejected_items"`
	ByModality   map[Modality][]ModalityResult `json:"processing_results"`
	ChunksStored int                          `json:"chunks_stored"`
}
