// Package ingestion routes incoming medical data to modality-specific
// agents: imaging to vision, audio to speech, text to NLP, and
// timeseries to the vitals analyzer.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "ingestion_agent"

// MaxItemSize caps a single ingested item at 100MB.
const MaxItemSize = 100 * 1024 * 1024

// formatModalities maps file extensions to the modality that handles them.
var formatModalities = map[string]domain.Modality{
	"dicom": domain.ModalityImaging,
	"png":   domain.ModalityImaging,
	"jpg":   domain.ModalityImaging,
	"pdf":   domain.ModalityImaging,
	"wav":   domain.ModalityAudio,
	"mp3":   domain.ModalityAudio,
	"m4a":   domain.ModalityAudio,
	"txt":   domain.ModalityText,
	"docx":  domain.ModalityText,
	"csv":   domain.ModalityTimeSeries,
	"json":  domain.ModalityTimeSeries,
}

// Handler processes one item of a specific modality.
type Handler interface {
	Process(ctx context.Context, data domain.MedicalData) (domain.ModalityResult, error)
}

// Item is one entry in a multi-modal ingestion request.
type Item struct {
	FilePath string         `json:"file_path"`
	DataType string         `json:"data_type"`
	Content  string         `json:"content,omitempty"`
	Size     int64          `json:"size,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Agent validates, routes and fans out ingestion items to handlers.
type Agent struct {
	mu       sync.RWMutex
	handlers map[domain.Modality]Handler
	workers  int
}

func New() *Agent {
	return &Agent{
		handlers: make(map[domain.Modality]Handler),
		workers:  4,
	}
}

// RegisterHandler wires a modality to its processing agent.
func (a *Agent) RegisterHandler(modality domain.Modality, handler Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[modality] = handler
	slog.Info("Registered modality handler", "modality", modality)
}

// DetectModality resolves a file path to a modality by extension.
func DetectModality(filePath string) (domain.Modality, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	modality, ok := formatModalities[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", domain.ErrUnsupportedModality, ext)
	}
	return modality, nil
}

// Validate checks one item before routing. PDFs are ambiguous between
// imaging and text; the declared data type resolves them. Items without
// inline content must reference a file that exists on disk.
func (a *Agent) Validate(item Item) (domain.Modality, error) {
	if item.FilePath == "" {
		return "", fmt.Errorf("file path is required")
	}
	if item.Size > MaxItemSize {
		return "", fmt.Errorf("item exceeds maximum size of %d bytes", MaxItemSize)
	}

	modality, err := DetectModality(item.FilePath)
	if err != nil {
		return "", err
	}

	if item.Content == "" {
		info, err := os.Stat(item.FilePath)
		if err != nil {
			return "", fmt.Errorf("file not accessible: %w", err)
		}
		if info.Size() > MaxItemSize {
			return "", fmt.Errorf("item exceeds maximum size of %d bytes", MaxItemSize)
		}
	}

	if modality == domain.ModalityImaging && isTextualType(item.DataType) {
		modality = domain.ModalityText
	}
	return modality, nil
}

func isTextualType(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "clinical_notes", "prescription", "discharge_summary":
		return true
	}
	return false
}

// Ingest validates every item, routes each to its handler in parallel,
// and returns per-modality results. Invalid items are rejected, not fatal.
func (a *Agent) Ingest(ctx context.Context, patientID uuid.UUID, items []Item) (*domain.IngestionResult, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	result := &domain.IngestionResult{
		PatientID:  patientID,
		ByModality: make(map[domain.Modality][]domain.ModalityResult),
	}

	var accepted []domain.MedicalData
	for _, item := range items {
		modality, err := a.Validate(item)
		if err != nil {
			slog.Warn("Rejected ingestion item", "patient_id", patientID, "file", item.FilePath, "error", err)
			result.Rejected++
			continue
		}

		accepted = append(accepted, domain.MedicalData{
			ID:         uuid.New(),
			PatientID:  patientID,
			Modality:   modality,
			DataType:   item.DataType,
			FilePath:   item.FilePath,
			FileFormat: strings.ToLower(strings.TrimPrefix(filepath.Ext(item.FilePath), ".")),
			Content:    item.Content,
			Metadata:   item.Metadata,
			IngestedAt: time.Now().UTC(),
		})
	}
	result.TotalItems = len(accepted)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, data := range accepted {
		g.Go(func() error {
			modResult := a.processOne(gctx, data)
			mu.Lock()
			result.ByModality[data.Modality] = append(result.ByModality[data.Modality], modResult)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return result, nil
}

func (a *Agent) processOne(ctx context.Context, data domain.MedicalData) domain.ModalityResult {
	a.mu.RLock()
	handler, ok := a.handlers[data.Modality]
	a.mu.RUnlock()

	if !ok {
		slog.Warn("No handler registered for modality", "modality", data.Modality)
		return domain.ModalityResult{
			DataID:   data.ID,
			Agent:    agentName,
			Modality: data.Modality,
			Status:   "skipped",
			Error:    "no handler registered",
		}
	}

	modResult, err := handler.Process(ctx, data)
	if err != nil {
		slog.Error("Modality handler failed", "modality", data.Modality, "data_id", data.ID, "error", err)
		return domain.ModalityResult{
			DataID:   data.ID,
			Agent:    modResult.Agent,
			Modality: data.Modality,
			Status:   "error",
			Error:    err.Error(),
		}
	}
	modResult.DataID = data.ID
	modResult.Modality = data.Modality
	if modResult.Status == "" {
		modResult.Status = "completed"
	}
	return modResult
}
