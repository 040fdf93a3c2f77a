package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/embedding"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/feedback"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/ingestion"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/memory"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/nlp"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/reasoning"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/retrieval"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/speech"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/timeseries"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/vision"
	"github.com/RAJARYANSINGH0059/Convolve/internal/config"
	"github.com/RAJARYANSINGH0059/Convolve/internal/database"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/llm"
	"github.com/RAJARYANSINGH0059/Convolve/internal/logging"
	"github.com/RAJARYANSINGH0059/Convolve/internal/narrator"
	"github.com/RAJARYANSINGH0059/Convolve/internal/pipeline"
	"github.com/RAJARYANSINGH0059/Convolve/internal/redis"
	"github.com/RAJARYANSINGH0059/Convolve/internal/server"
	"github.com/RAJARYANSINGH0059/Convolve/internal/vector"
	"github.com/RAJARYANSINGH0059/Convolve/internal/websocket"
)

const maxWebsocketClientsPerJob = 100

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupVectorStore returns nil when Qdrant is not configured; the
// retrieval agent degrades to context-only reasoning in that case.
func setupVectorStore(cfg *config.Config) domain.VectorStore {
	if !cfg.VectorSearchEnabled() {
		slog.Warn("Qdrant not configured, hybrid retrieval disabled")
		return nil
	}

	store := vector.NewQdrantStore(cfg.QdrantEndpoint, cfg.QdrantAPIKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureCollections(ctx); err != nil {
		slog.Error("Failed to ensure Qdrant collections", "error", err)
		os.Exit(1)
	}
	return store
}

func setupModels(cfg *config.Config) (openai *llm.OpenAIClient, gemini *llm.GeminiClient) {
	openai = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch {
	case cfg.VertexProjectID != "":
		gemini, err = llm.NewVertexGeminiClient(ctx, cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexModelID)
	case cfg.GoogleAPIKey != "":
		gemini, err = llm.NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.GoogleModelID)
	}
	if err != nil {
		slog.Warn("Gemini unavailable, continuing with OpenAI only", "error", err)
		gemini = nil
	}
	return openai, gemini
}

func setupIngestion(gemini *llm.GeminiClient) *ingestion.Agent {
	// Interface conversions go through a nil check to avoid typed-nil
	// surprises in the degradation paths.
	var chatModel domain.ChatModel
	if gemini != nil {
		chatModel = gemini
	}

	agent := ingestion.New()
	agent.RegisterHandler(domain.ModalityImaging, vision.New(chatModel))
	agent.RegisterHandler(domain.ModalityAudio, speech.New(chatModel))
	agent.RegisterHandler(domain.ModalityText, nlp.New())
	agent.RegisterHandler(domain.ModalityTimeSeries, timeseries.New())
	return agent
}

func runGracefulShutdown(srv *server.Server, orchestrator *pipeline.Orchestrator, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// No new submissions once the server is down; drain in-flight
		// analyses before dropping their progress streams.
		orchestrator.Stop()
		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.APIPort)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()
	rdb := redisClient.Underlying()

	patientRepo := database.NewPatientRepo(pool)
	reportRepo := database.NewReportRepo(pool)
	auditRepo := database.NewAuditRepo(pool)
	feedbackRepo := database.NewFeedbackRepo(pool)

	jobStore := redis.NewJobStore(rdb)
	debouncer := redis.NewDebouncer(rdb)
	reportCache := redis.NewReportCache(rdb, reportRepo)

	store := setupVectorStore(cfg)
	openai, gemini := setupModels(cfg)

	models := []domain.ChatModel{openai}
	if gemini != nil {
		models = append(models, gemini)
	}

	embedAgent := embedding.New(openai)
	retrievalAgent := retrieval.New(store)
	reasoningAgent := reasoning.New(models...)
	memoryAgent := memory.New(store, auditRepo)
	ingestAgent := setupIngestion(gemini)
	indexer := ingestion.NewIndexer(embedAgent, memoryAgent)
	feedbackAgent := feedback.New(feedbackRepo, reportRepo, auditRepo, memoryAgent, debouncer, reportCache)

	var translator narrator.Translator
	if gemini != nil {
		translator = gemini
	}
	narrationAgent := narrator.New(translator)

	hub := websocket.NewHub(clock, maxWebsocketClientsPerJob)
	orchestrator := pipeline.New(jobStore, patientRepo, reportRepo, auditRepo, embedAgent, retrievalAgent, reasoningAgent, hub)

	srv := server.NewServer(cfg, server.Deps{
		Patients:    patientRepo,
		Reports:     reportRepo,
		ReportCache: reportCache,
		Audit:       auditRepo,
		Ingestor:    ingestAgent,
		Indexer:     indexer,
		Analysis:    orchestrator,
		Feedback:    feedbackAgent,
		Narrator:    narrationAgent,
		Hub:         hub,
		Postgres:    pool,
		Redis:       redisClient,
	})

	done := runGracefulShutdown(srv, orchestrator, hub)

	slog.Info("Server starting", "host", cfg.APIHost, "port", cfg.APIPort)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
