package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/google/uuid"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

// CollectionName is the single Qdrant collection holding every embedded
// chunk. Named vectors separate the dense and sparse spaces.
const CollectionName = "medical_memory"

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// QdrantStore talks to Qdrant over its REST API and implements
// domain.VectorStore. All calls go through a shared circuit breaker so
// a down cluster fails fast instead of stalling the pipeline.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         circuitbreaker.CircuitBreaker[any]
}

func NewQdrantStore(endpoint, apiKey string) *QdrantStore {
	return &QdrantStore{
		baseURL:    strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         newBreaker("qdrant"),
	}
}

var _ domain.VectorStore = (*QdrantStore)(nil)

// EnsureCollections creates the memory collection if it does not exist.
// Safe to call at every startup.
func (s *QdrantStore) EnsureCollections(ctx context.Context) error {
	var status struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	err := s.do(ctx, "collection_get", http.MethodGet, "/collections/"+CollectionName, nil, &status)
	if err == nil {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     domain.DenseDimension,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}
	if err := s.do(ctx, "collection_create", http.MethodPut, "/collections/"+CollectionName, body, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes chunks with their dense and sparse vectors plus the
// payload fields used for filtered retrieval.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []domain.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		indices, values := splitSparse(chunk.Sparse)
		points = append(points, map[string]any{
			"id": chunk.ID.String(),
			"vector": map[string]any{
				denseVectorName: chunk.Dense,
				sparseVectorName: map[string]any{
					"indices": indices,
					"values":  values,
				},
			},
			"payload": map[string]any{
				"data_id":    chunk.DataID.String(),
				"patient_id": chunk.PatientID.String(),
				"modality":   string(chunk.Modality),
				"text":       chunk.Text,
				"position":   chunk.Position,
				"model":      chunk.Model,
				"confidence": 0.5,
				"timestamp":  chunk.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, "upsert", http.MethodPut, "/collections/"+CollectionName+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// SearchDense runs a cosine similarity search over the dense vector space.
func (s *QdrantStore) SearchDense(ctx context.Context, vector []float64, filter domain.SearchFilter, limit int) ([]domain.SearchResult, error) {
	body := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": vector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	return s.search(ctx, "search_dense", body)
}

// SearchSparse runs a keyword-style search over the sparse vector space.
func (s *QdrantStore) SearchSparse(ctx context.Context, vector domain.SparseVector, filter domain.SearchFilter, limit int) ([]domain.SearchResult, error) {
	indices, values := splitSparse(vector)
	body := map[string]any{
		"vector": map[string]any{
			"name": sparseVectorName,
			"vector": map[string]any{
				"indices": indices,
				"values":  values,
			},
		},
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	return s.search(ctx, "search_sparse", body)
}

// Reinforce adjusts a chunk's stored confidence by delta, clamped to [0, 1].
func (s *QdrantStore) Reinforce(ctx context.Context, chunkID uuid.UUID, delta float64) error {
	var retrieved struct {
		Result []struct {
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	body := map[string]any{
		"ids":          []string{chunkID.String()},
		"with_payload": true,
	}
	if err := s.do(ctx, "retrieve", http.MethodPost, "/collections/"+CollectionName+"/points", body, &retrieved); err != nil {
		return fmt.Errorf("failed to retrieve point: %w", err)
	}
	if len(retrieved.Result) == 0 {
		return fmt.Errorf("chunk %s not found in vector store", chunkID)
	}

	confidence := 0.5
	if v, ok := retrieved.Result[0].Payload["confidence"].(float64); ok {
		confidence = v
	}
	confidence = clamp01(confidence + delta)

	update := map[string]any{
		"payload": map[string]any{"confidence": confidence},
		"points":  []string{chunkID.String()},
	}
	if err := s.do(ctx, "reinforce", http.MethodPost, "/collections/"+CollectionName+"/points/payload?wait=true", update, nil); err != nil {
		return fmt.Errorf("failed to update confidence: %w", err)
	}
	return nil
}

func (s *QdrantStore) search(ctx context.Context, operation string, body map[string]any) ([]domain.SearchResult, error) {
	var response struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, operation, http.MethodPost, "/collections/"+CollectionName+"/points/search", body, &response); err != nil {
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}

	results := make([]domain.SearchResult, 0, len(response.Result))
	for _, hit := range response.Result {
		result := domain.SearchResult{
			Score:   hit.Score,
			Payload: hit.Payload,
		}
		if id, err := uuid.Parse(hit.ID); err == nil {
			result.ChunkID = id
		}
		if v, ok := hit.Payload["patient_id"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				result.PatientID = id
			}
		}
		if v, ok := hit.Payload["modality"].(string); ok {
			result.Modality = domain.Modality(v)
		}
		if v, ok := hit.Payload["text"].(string); ok {
			result.Text = v
		}
		if v, ok := hit.Payload["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				result.Timestamp = ts
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *QdrantStore) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	defer func() {
		metrics.QdrantOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if !s.cb.TryAcquirePermit() {
		metrics.QdrantOpsTotal.WithLabelValues(operation, "circuit_open").Inc()
		return fmt.Errorf("qdrant circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.cb.RecordError(err)
		metrics.QdrantOpsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.cb.RecordError(err)
		metrics.QdrantOpsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
		// 4xx means our request is wrong, not that Qdrant is down
		if resp.StatusCode >= 500 {
			s.cb.RecordError(err)
		} else {
			s.cb.RecordSuccess()
		}
		metrics.QdrantOpsTotal.WithLabelValues(operation, "error").Inc()
		return err
	}

	s.cb.RecordSuccess()
	metrics.QdrantOpsTotal.WithLabelValues(operation, "success").Inc()

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// buildFilter translates a SearchFilter into Qdrant filter clauses.
func buildFilter(filter domain.SearchFilter) map[string]any {
	var must []map[string]any
	var mustNot []map[string]any

	if filter.PatientID != uuid.Nil {
		must = append(must, map[string]any{
			"key":   "patient_id",
			"match": map[string]any{"value": filter.PatientID.String()},
		})
	}
	if filter.Modality != "" {
		must = append(must, map[string]any{
			"key":   "modality",
			"match": map[string]any{"value": string(filter.Modality)},
		})
	}
	if !filter.Since.IsZero() {
		must = append(must, map[string]any{
			"key": "timestamp",
			"range": map[string]any{
				"gte": filter.Since.UTC().Format(time.RFC3339),
			},
		})
	}
	if filter.ExcludePatientID != uuid.Nil {
		mustNot = append(mustNot, map[string]any{
			"key":   "patient_id",
			"match": map[string]any{"value": filter.ExcludePatientID.String()},
		})
	}

	if must == nil && mustNot == nil {
		return nil
	}
	out := map[string]any{}
	if must != nil {
		out["must"] = must
	}
	if mustNot != nil {
		out["must_not"] = mustNot
	}
	return out
}

// splitSparse converts the map form into Qdrant's parallel index/value
// arrays with deterministic ordering.
func splitSparse(vector domain.SparseVector) ([]uint32, []float64) {
	indices := make([]uint32, 0, len(vector))
	for idx := range vector {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = vector[idx]
	}
	return indices, values
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
