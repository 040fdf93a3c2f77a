package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/RAJARYANSINGH0059/Convolve/internal/platform/retry"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	embeddingModel = "text-embedding-3-large"
)

var errRateLimited = errors.New("rate limit exceeded (429)")

// OpenAIClient talks to the OpenAI chat and embeddings APIs. It
// implements both domain.ChatModel and domain.Embedder. Calls go
// through a circuit breaker so a degraded provider fails fast.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	policy     retry.Policy
	cb         circuitbreaker.CircuitBreaker[any]
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   1 * time.Second,
			RateLimitBackoff: 10 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying OpenAI request", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
		cb: newBreaker("openai"),
	}
}

var (
	_ domain.ChatModel = (*OpenAIClient)(nil)
	_ domain.Embedder  = (*OpenAIClient)(nil)
)

func (c *OpenAIClient) Provider() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Complete sends a system + user prompt and returns the completion text.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.1,
	}

	return retry.Do(ctx, c.policy, classifyAPIError, func() (string, error) {
		start := time.Now()
		defer func() {
			metrics.LLMRequestDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
		}()

		var response chatResponse
		if err := c.post(ctx, "/chat/completions", reqBody, &response); err != nil {
			metrics.LLMRequestsTotal.WithLabelValues("openai", "error").Inc()
			return "", err
		}
		if response.Error != nil {
			metrics.LLMRequestsTotal.WithLabelValues("openai", "error").Inc()
			return "", fmt.Errorf("API error: %s", response.Error.Message)
		}
		if len(response.Choices) == 0 {
			metrics.LLMRequestsTotal.WithLabelValues("openai", "error").Inc()
			return "", fmt.Errorf("no completion returned")
		}

		metrics.LLMRequestsTotal.WithLabelValues("openai", "success").Inc()
		return strings.TrimSpace(response.Choices[0].Message.Content), nil
	})
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// Embed produces a dense embedding using text-embedding-3-large.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	reqBody := embeddingRequest{Model: embeddingModel, Input: []string{text}}

	return retry.Do(ctx, c.policy, classifyAPIError, func() ([]float64, error) {
		start := time.Now()
		defer func() {
			metrics.LLMRequestDuration.WithLabelValues("openai_embed").Observe(time.Since(start).Seconds())
		}()

		var response embeddingResponse
		if err := c.post(ctx, "/embeddings", reqBody, &response); err != nil {
			metrics.LLMRequestsTotal.WithLabelValues("openai_embed", "error").Inc()
			return nil, err
		}
		if response.Error != nil {
			metrics.LLMRequestsTotal.WithLabelValues("openai_embed", "error").Inc()
			return nil, fmt.Errorf("API error: %s", response.Error.Message)
		}
		if len(response.Data) == 0 {
			metrics.LLMRequestsTotal.WithLabelValues("openai_embed", "error").Inc()
			return nil, fmt.Errorf("no embedding returned")
		}

		metrics.LLMRequestsTotal.WithLabelValues("openai_embed", "success").Inc()
		return response.Data[0].Embedding, nil
	})
}

func (c *OpenAIClient) post(ctx context.Context, path string, body, out any) error {
	if !c.cb.TryAcquirePermit() {
		return fmt.Errorf("openai circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.cb.RecordError(err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.cb.RecordError(err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.cb.RecordError(errRateLimited)
		return errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(data))
		// 4xx means our request is wrong, not that the provider is down
		if resp.StatusCode >= 500 {
			c.cb.RecordError(err)
		} else {
			c.cb.RecordSuccess()
		}
		return err
	}

	c.cb.RecordSuccess()
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// classifyAPIError decides how the retry loop treats a failure:
// rate limits wait longer, 4xx errors and an open breaker abort,
// everything else retries.
func classifyAPIError(err error) retry.Action {
	if errors.Is(err, errRateLimited) {
		return retry.After
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return retry.Stop
	}
	msg := err.Error()
	if strings.Contains(msg, "status 4") {
		return retry.Stop
	}
	return retry.Retry
}
