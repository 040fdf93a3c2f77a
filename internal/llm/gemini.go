package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"google.golang.org/genai"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

// GeminiClient wraps the Google GenAI SDK. It implements
// domain.ChatModel and additionally offers translation for narratives.
// Calls go through a circuit breaker so a degraded provider fails fast.
type GeminiClient struct {
	client *genai.Client
	model  string
	cb     circuitbreaker.CircuitBreaker[any]
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-pro"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model, cb: newBreaker("gemini")}, nil
}

// NewVertexGeminiClient routes Gemini calls through Vertex AI instead
// of the consumer API. Credentials come from the ambient Google
// application default credentials.
func NewVertexGeminiClient(ctx context.Context, projectID, location, model string) (*GeminiClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("Vertex project ID is required")
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model, cb: newBreaker("gemini")}, nil
}

var _ domain.ChatModel = (*GeminiClient)(nil)

func (c *GeminiClient) Provider() string { return "gemini" }

// Complete sends a system + user prompt and returns the generated text.
func (c *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	}()

	if !c.cb.TryAcquirePermit() {
		metrics.LLMRequestsTotal.WithLabelValues("gemini", "circuit_open").Inc()
		return "", fmt.Errorf("gemini circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.cb.RecordError(err)
		metrics.LLMRequestsTotal.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		c.cb.RecordError(fmt.Errorf("empty completion"))
		metrics.LLMRequestsTotal.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("no completion returned")
	}

	c.cb.RecordSuccess()
	metrics.LLMRequestsTotal.WithLabelValues("gemini", "success").Inc()
	return strings.TrimSpace(text), nil
}

// Translate renders text into the target language, preserving medical
// terminology as closely as the language allows.
func (c *GeminiClient) Translate(ctx context.Context, text, language string) (string, error) {
	system := "You are a medical translator. Translate the following text faithfully, " +
		"keeping medical terms precise. Return only the translated text."
	prompt := fmt.Sprintf("Target language: %s\n\n%s", language, text)
	return c.Complete(ctx, system, prompt)
}
