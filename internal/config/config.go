// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" default:"development"`
	APIHost  string `env:"API_HOST" default:"0.0.0.0"`
	APIPort  string `env:"API_PORT" default:"8000"`
	APIDebug bool   `env:"API_DEBUG" default:"false"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" default:"gpt-4-turbo-preview"`

	GoogleAPIKey  string `env:"GOOGLE_API_KEY"`
	GoogleModelID string `env:"GOOGLE_MODEL_ID" default:"gemini-pro"`

	VertexProjectID string `env:"VERTEX_PROJECT_ID"`
	VertexLocation  string `env:"VERTEX_LOCATION" default:"us-central1"`
	VertexModelID   string `env:"VERTEX_MODEL_ID" default:"gemini-1.5-pro"`

	QdrantEndpoint  string `env:"QDRANT_ENDPOINT"`
	QdrantAPIKey    string `env:"QDRANT_API_KEY"`
	QdrantClusterID string `env:"QDRANT_CLUSTER_ID"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if _, err := strconv.Atoi(cfg.APIPort); err != nil {
		return fmt.Errorf("API_PORT must be numeric, got %q", cfg.APIPort)
	}

	// Qdrant config: endpoint and API key must be set together
	if cfg.QdrantEndpoint != "" || cfg.QdrantAPIKey != "" {
		if cfg.QdrantEndpoint == "" {
			return fmt.Errorf("QDRANT_ENDPOINT is required when QDRANT_API_KEY is set")
		}
		if cfg.QdrantAPIKey == "" {
			return fmt.Errorf("QDRANT_API_KEY is required when QDRANT_ENDPOINT is set")
		}
	}

	// Vertex merge needs a project; fall back to the Gemini API key path when absent
	if cfg.VertexProjectID != "" && cfg.VertexLocation == "" {
		return fmt.Errorf("VERTEX_LOCATION is required when VERTEX_PROJECT_ID is set")
	}

	return nil
}

// VectorSearchEnabled reports whether a Qdrant cluster is configured.
// Without it the service still ingests and analyzes, but retrieval
// degrades to report-store lookups only.
func (c *Config) VectorSearchEnabled() bool {
	return c.QdrantEndpoint != ""
}
