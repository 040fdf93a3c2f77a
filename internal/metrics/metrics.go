package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Agent Metrics
var (
	// AgentProcessingTotal tracks agent invocations by agent name and status
	AgentProcessingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_processing_total",
			Help: "Total agent invocations by agent and status (completed/error)",
		},
		[]string{"agent", "status"},
	)

	// AgentProcessingDuration tracks per-agent processing latency
	AgentProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_processing_duration_seconds",
			Help:    "Agent processing duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)
)

// Pipeline Metrics
var (
	// PipelineJobsTotal tracks analysis jobs by terminal state
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_total",
			Help: "Total analysis pipeline jobs by result (completed/failed/timeout)",
		},
		[]string{"result"},
	)

	// PipelineJobDuration tracks end-to-end pipeline latency
	PipelineJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_job_duration_seconds",
			Help:    "End-to-end analysis pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// PipelineJobsActive tracks currently running analysis jobs
	PipelineJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_jobs_active",
			Help: "Number of analysis jobs currently running",
		},
	)

	// PipelineStageTotal tracks completed stages by name and status
	PipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Pipeline stage completions by stage and status",
		},
		[]string{"stage", "status"},
	)
)

// Vector Store Metrics
var (
	// QdrantOpsTotal tracks Qdrant operations by operation and status
	QdrantOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdrant_operations_total",
			Help: "Total Qdrant operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// QdrantOpDuration tracks Qdrant operation latency
	QdrantOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qdrant_operation_duration_seconds",
			Help:    "Qdrant operation duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// HybridSearchResults tracks result counts returned by hybrid search
	HybridSearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hybrid_search_results",
			Help:    "Number of results returned by hybrid search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

// LLM Metrics
var (
	// LLMRequestsTotal tracks LLM API calls by provider and status
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total LLM API requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	// LLMRequestDuration tracks LLM API call latency by provider
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM API request duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Cache Metrics
var (
	// ReportCacheHits tracks report cache hits
	ReportCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_hits_total",
			Help: "Total report cache hits",
		},
	)

	// ReportCacheMisses tracks report cache misses
	ReportCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_misses_total",
			Help: "Total report cache misses",
		},
	)

	// FeedbackDebounced tracks feedback submissions rejected by the debouncer
	FeedbackDebounced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_debounced_total",
			Help: "Feedback submissions suppressed by the per-report debounce window",
		},
	)
)

// WebSocket Metrics
var (
	// WSConnectionsCurrent tracks current progress-stream connections
	WSConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WSSlowClientsEvicted tracks slow clients evicted due to full buffers
	WSSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_evicted_total",
			Help: "Total slow WebSocket clients evicted due to buffer full",
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
