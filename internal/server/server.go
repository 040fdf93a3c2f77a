// Package server exposes the clinical intelligence pipeline over HTTP:
// patient registration, multi-modal ingestion, asynchronous analysis
// jobs with websocket progress, report narration and doctor feedback.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/feedback"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/ingestion"
	"github.com/RAJARYANSINGH0059/Convolve/internal/config"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
	"github.com/RAJARYANSINGH0059/Convolve/internal/narrator"
	"github.com/RAJARYANSINGH0059/Convolve/internal/pipeline"
	"github.com/RAJARYANSINGH0059/Convolve/internal/platform/correlation"
)

// analysisService starts pipeline runs and reports their state.
type analysisService interface {
	Start(ctx context.Context, req pipeline.Request) (*domain.AnalysisJob, error)
	Job(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error)
}

// ingestService routes multi-modal items to their processing agents.
type ingestService interface {
	Ingest(ctx context.Context, patientID uuid.UUID, items []ingestion.Item) (*domain.IngestionResult, error)
}

// indexService embeds ingestion results into long-term memory.
type indexService interface {
	Index(ctx context.Context, result *domain.IngestionResult) (int, error)
}

// feedbackService records doctor feedback and aggregates accuracy.
type feedbackService interface {
	Submit(ctx context.Context, fb *domain.DoctorFeedback, chunkIDs []uuid.UUID) error
	Accuracy(ctx context.Context, reportID uuid.UUID) (*feedback.Stats, error)
}

// narrationService renders report narratives in a target language.
type narrationService interface {
	Narrate(ctx context.Context, report *domain.ConsolidatedReport, summary *domain.ClinicalIntelligenceSummary, language string, narrativeType narrator.NarrativeType) (*narrator.Narration, error)
}

// reportReader is the read path for single reports (cache in front of
// PostgreSQL in production).
type reportReader interface {
	GetReport(ctx context.Context, id uuid.UUID) (*domain.ConsolidatedReport, error)
}

// progressHub fans stage updates out to websocket subscribers.
type progressHub interface {
	Register(jobID uuid.UUID, conn *websocket.Conn) error
	Unregister(jobID uuid.UUID, conn *websocket.Conn)
}

// pinger is a minimal dependency health check.
type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the HTTP layer talks to.
type Deps struct {
	Patients    domain.PatientRepository
	Reports     domain.ReportRepository
	ReportCache reportReader
	Audit       domain.AuditRepository
	Ingestor    ingestService
	Indexer     indexService
	Analysis    analysisService
	Feedback    feedbackService
	Narrator    narrationService
	Hub         progressHub
	Postgres    pinger
	Redis       pinger
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	deps      Deps
	limiter   *ipRateLimiter
	startTime time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.APIDebug

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(requestLogger())
	e.Use(metricsMiddleware())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		deps:      deps,
		limiter:   newIPRateLimiter(defaultRequestsPerSecond, defaultBurst),
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// echoprometheus registers its collectors on the default registry, so
// the middleware must be created once per process even when multiple
// servers are constructed (tests do).
var (
	promOnce       sync.Once
	promMiddleware echo.MiddlewareFunc
)

func metricsMiddleware() echo.MiddlewareFunc {
	promOnce.Do(func() {
		promMiddleware = echoprometheus.NewMiddleware("convolve")
	})
	return promMiddleware
}

// correlationMiddleware tags every request with a short correlation ID
// so logs across the pipeline can be tied back to one HTTP call.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get("X-Correlation-ID")
			if id == "" {
				id = correlation.NewID()
			}

			c.Set("correlationID", id)
			c.Response().Header().Set("X-Correlation-ID", id)

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			slog.InfoContext(c.Request().Context(), "Request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}
