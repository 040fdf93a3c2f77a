package domain

import "errors"

var (
	// ErrPatientNotFound is returned when a patient ID resolves to nothing.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrReportNotFound is returned when a report ID resolves to nothing.
	ErrReportNotFound = errors.New("report not found")
	// ErrJobNotFound is returned when an analysis job ID is unknown.
	ErrJobNotFound = errors.New("analysis job not found")
	// ErrUnsupportedModality is returned for data the ingestion layer cannot route.
	ErrUnsupportedModality = errors.New("unsupported data modality")
	// ErrUnsupportedLanguage is returned for narration in an unknown language.
	ErrUnsupportedLanguage = errors.New("unsupported narration language")
	// ErrVectorStoreDisabled is returned when Qdrant is not configured.
	ErrVectorStoreDisabled = errors.New("vector store not configured")
	// ErrFeedbackDebounced is returned when a doctor resubmits feedback
	// on the same report within the debounce window.
	ErrFeedbackDebounced = errors.New("duplicate feedback submission suppressed")
	// ErrAnalysisBacklog is returned when the analysis worker pool cannot
	// accept another job.
	ErrAnalysisBacklog = errors.New("analysis queue is full")
)
