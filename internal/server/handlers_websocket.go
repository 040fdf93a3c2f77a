package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	apperrors "github.com/RAJARYANSINGH0059/Convolve/internal/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards subscribe from other origins; auth is out of band
		return true
	},
}

func (s *Server) handleAnalysisStream(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		return apperrors.ValidationError("invalid job ID").WithContext("id", c.Param("jobID"))
	}

	// Reject before upgrading so unknown jobs get a proper HTTP status
	if _, err := s.deps.Analysis.Job(c.Request().Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return apperrors.NotFoundError("analysis job not found").WithContext("job_id", jobID.String())
		}
		return apperrors.InternalError("failed to load job", err).WithContext("job_id", jobID.String())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "job_id", jobID, "error", err)
		return nil
	}

	if err := s.deps.Hub.Register(jobID, conn); err != nil {
		slog.Warn("Failed to register progress subscriber", "job_id", jobID, "error", err)
		return nil
	}

	// Read pump: clients never send data, but reading drives pong
	// handling and detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.deps.Hub.Unregister(jobID, conn)
	return nil
}
