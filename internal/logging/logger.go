package logging

import (
	"log/slog"
	"os"

	"github.com/RAJARYANSINGH0059/Convolve/internal/platform/correlation"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	// Context-aware log calls pick up the request correlation ID
	Logger = slog.New(correlation.NewHandler(handler))
	slog.SetDefault(Logger)
}

// WithPatient returns a logger with patient_id field.
func WithPatient(patientID string) *slog.Logger {
	return Logger.With("patient_id", patientID)
}

// WithReport returns a logger with report_id field.
func WithReport(reportID string) *slog.Logger {
	return Logger.With("report_id", reportID)
}

// WithAgent returns a logger with agent field.
func WithAgent(agent string) *slog.Logger {
	return Logger.With("agent", agent)
}

// WithJob returns a logger with job_id field.
func WithJob(jobID string) *slog.Logger {
	return Logger.With("job_id", jobID)
}
