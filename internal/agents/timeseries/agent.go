// Package timeseries analyzes vital-sign streams and ECG recordings:
// summary statistics, reference-range checks, trend assessment and
// 3-sigma anomaly detection.
package timeseries

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const agentName = "timeseries_agent"

// VitalRange is the clinical reference range for one signal.
type VitalRange struct {
	Low  float64
	High float64
}

// Reference ranges for supported signals.
var vitalRanges = map[string]VitalRange{
	"heart_rate":        {Low: 60, High: 100},
	"systolic_bp":       {Low: 90, High: 120},
	"diastolic_bp":      {Low: 60, High: 80},
	"oxygen_saturation": {Low: 95, High: 100},
	"temperature":       {Low: 36.5, High: 37.5},
	"respiratory_rate":  {Low: 12, High: 20},
	"glucose":           {Low: 70, High: 140},
}

// Statistics summarizes one signal.
type Statistics struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
}

// Abnormality is one detected deviation from the reference range or
// statistical baseline.
type Abnormality struct {
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	Severity string  `json:"severity"`
	Index    int     `json:"index,omitempty"`
}

// Analysis is the output for one signal.
type Analysis struct {
	SignalType    string        `json:"signal_type"`
	DataPoints    int           `json:"data_points"`
	Statistics    Statistics    `json:"statistics"`
	Abnormalities []Abnormality `json:"abnormalities_detected"`
	Trend         string        `json:"trend_analysis"`
}

// Agent analyzes time-series medical data.
type Agent struct{}

func New() *Agent { return &Agent{} }

// CalculateStatistics computes summary statistics over a signal.
func CalculateStatistics(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	var sum, min, max float64
	min, max = values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	var variance float64
	if len(values) > 1 {
		for _, v := range values {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(values) - 1)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return Statistics{
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(variance),
		Min:    min,
		Max:    max,
		Range:  max - min,
	}
}

// AssessTrend compares the mean of the last five samples against the
// first five: stable, improving or worsening. A rising signal reads as
// worsening because every supported vital flags on elevation.
func AssessTrend(values []float64) string {
	if len(values) < 2 {
		return "insufficient_data"
	}

	n := 5
	if len(values) < n {
		n = len(values)
	}
	var recent, older float64
	for _, v := range values[len(values)-n:] {
		recent += v
	}
	for _, v := range values[:n] {
		older += v
	}
	recent /= float64(n)
	older /= float64(n)

	switch {
	case recent > older*1.05:
		return "worsening"
	case recent < older*0.95:
		return "improving"
	default:
		return "stable"
	}
}

// DetectAnomalies flags values more than three standard deviations
// from the mean.
func DetectAnomalies(values []float64) []Abnormality {
	stats := CalculateStatistics(values)
	if stats.StdDev == 0 {
		return nil
	}

	var anomalies []Abnormality
	upper := stats.Mean + 3*stats.StdDev
	lower := stats.Mean - 3*stats.StdDev
	for i, v := range values {
		if v > upper || v < lower {
			anomalies = append(anomalies, Abnormality{
				Type:     "statistical_outlier",
				Value:    v,
				Severity: "high",
				Index:    i,
			})
		}
	}
	return anomalies
}

// checkRange compares the signal mean against its reference range.
func checkRange(signalType string, stats Statistics) []Abnormality {
	ref, ok := vitalRanges[signalType]
	if !ok {
		return nil
	}

	var abnormalities []Abnormality
	if stats.Mean > ref.High {
		severity := "mild"
		if stats.Mean > ref.High*1.2 {
			severity = "moderate"
		}
		abnormalities = append(abnormalities, Abnormality{
			Type:     "above_reference_range",
			Value:    stats.Mean,
			Severity: severity,
		})
	} else if stats.Mean < ref.Low {
		abnormalities = append(abnormalities, Abnormality{
			Type:     "below_reference_range",
			Value:    stats.Mean,
			Severity: "moderate",
		})
	}
	return abnormalities
}

// AnalyzeSignal runs the full analysis for one named signal.
func (a *Agent) AnalyzeSignal(signalType string, values []float64) Analysis {
	signalType = strings.ToLower(signalType)
	stats := CalculateStatistics(values)

	abnormalities := checkRange(signalType, stats)
	abnormalities = append(abnormalities, DetectAnomalies(values)...)

	return Analysis{
		SignalType:    signalType,
		DataPoints:    len(values),
		Statistics:    stats,
		Abnormalities: abnormalities,
		Trend:         AssessTrend(values),
	}
}

// AnalyzeECG derives heart rate from RR intervals (milliseconds) and
// flags bradycardia, tachycardia and rhythm irregularity.
func (a *Agent) AnalyzeECG(rrIntervals []float64) Analysis {
	stats := CalculateStatistics(rrIntervals)

	var abnormalities []Abnormality
	var bpm float64
	if stats.Mean > 0 {
		bpm = 60000 / stats.Mean
		if bpm < 60 {
			abnormalities = append(abnormalities, Abnormality{Type: "bradycardia", Value: bpm, Severity: "moderate"})
		}
		if bpm > 100 {
			severity := "mild"
			if bpm > 120 {
				severity = "moderate"
			}
			abnormalities = append(abnormalities, Abnormality{Type: "tachycardia", Value: bpm, Severity: severity})
		}
		// High RR variability relative to mean suggests irregular rhythm
		if stats.Mean > 0 && stats.StdDev/stats.Mean > 0.15 {
			abnormalities = append(abnormalities, Abnormality{Type: "irregular_rhythm", Value: stats.StdDev, Severity: "high"})
		}
	}

	return Analysis{
		SignalType:    "ecg",
		DataPoints:    len(rrIntervals),
		Statistics:    stats,
		Abnormalities: abnormalities,
		Trend:         AssessTrend(rrIntervals),
	}
}

// Process implements the ingestion handler contract: parses CSV or
// JSON content and runs the matching analysis.
func (a *Agent) Process(_ context.Context, data domain.MedicalData) (domain.ModalityResult, error) {
	start := time.Now()
	defer func() {
		metrics.AgentProcessingDuration.WithLabelValues(agentName).Observe(time.Since(start).Seconds())
	}()

	values, err := parseValues(data)
	if err != nil {
		metrics.AgentProcessingTotal.WithLabelValues(agentName, "error").Inc()
		return domain.ModalityResult{}, err
	}

	var analysis Analysis
	if strings.EqualFold(data.DataType, "ecg") {
		analysis = a.AnalyzeECG(values)
	} else {
		analysis = a.AnalyzeSignal(data.DataType, values)
	}

	metrics.AgentProcessingTotal.WithLabelValues(agentName, "completed").Inc()
	return domain.ModalityResult{
		Agent:   agentName,
		Summary: summarize(analysis),
		Findings: map[string]any{
			"analysis": analysis,
		},
		Confidence: signalConfidence(analysis),
		Status:     "completed",
	}, nil
}

func parseValues(data domain.MedicalData) ([]float64, error) {
	content := strings.TrimSpace(data.Content)
	if content == "" {
		return nil, fmt.Errorf("empty timeseries content")
	}

	if data.FileFormat == "json" || strings.HasPrefix(content, "{") {
		var payload struct {
			Values []float64 `json:"values"`
		}
		if err := json.Unmarshal([]byte(content), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse JSON timeseries: %w", err)
		}
		return payload.Values, nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV timeseries: %w", err)
	}

	var values []float64
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		// Last column carries the value; earlier columns are timestamps
		raw := strings.TrimSpace(record[len(record)-1])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue // header row or malformed line
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no numeric values found in timeseries data")
	}
	return values, nil
}

func signalConfidence(a Analysis) float64 {
	switch {
	case a.DataPoints >= 50:
		return 0.9
	case a.DataPoints >= 10:
		return 0.75
	default:
		return 0.5
	}
}

func summarize(a Analysis) string {
	if len(a.Abnormalities) == 0 {
		return fmt.Sprintf("%s within normal limits over %d samples, trend %s", a.SignalType, a.DataPoints, a.Trend)
	}
	types := make([]string, 0, len(a.Abnormalities))
	seen := map[string]bool{}
	for _, ab := range a.Abnormalities {
		if !seen[ab.Type] {
			types = append(types, ab.Type)
			seen[ab.Type] = true
		}
	}
	return fmt.Sprintf("%s shows %s over %d samples, trend %s", a.SignalType, strings.Join(types, ", "), a.DataPoints, a.Trend)
}
