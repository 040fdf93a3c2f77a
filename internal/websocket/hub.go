// Package websocket streams analysis job progress to subscribed
// clients. The hub is a single-goroutine actor: registrations,
// unregistrations and stage publications all flow through one command
// channel, so no client map locking is needed.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type jobClients map[*websocket.Conn]*clientWriter

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	jobID        uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	jobID      uuid.UUID
	connection *websocket.Conn
}

type publishCmd struct {
	baseHubCmd
	update domain.StageUpdate
}

type clientCountCmd struct {
	baseHubCmd
	jobID        uuid.UUID
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub fans analysis progress events out to websocket subscribers.
type Hub struct {
	cmdCh            chan hubCmd
	clock            clockwork.Clock
	clients          map[uuid.UUID]jobClients
	maxClientsPerJob int
	done             chan struct{}
}

// NewHub starts the hub actor. maxClientsPerJob bounds subscribers per
// analysis job to prevent resource exhaustion.
func NewHub(clock clockwork.Clock, maxClientsPerJob int) *Hub {
	h := &Hub{
		cmdCh:            make(chan hubCmd, 256),
		clock:            clock,
		clients:          make(map[uuid.UUID]jobClients),
		maxClientsPerJob: maxClientsPerJob,
		done:             make(chan struct{}),
	}
	go h.run()
	return h
}

// Register subscribes a connection to a job's progress stream.
func (h *Hub) Register(jobID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{jobID: jobID, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from a job's stream.
func (h *Hub) Unregister(jobID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{jobID: jobID, connection: conn}
}

// Publish delivers a stage update to every subscriber of its job.
// Non-blocking: slow clients are evicted rather than stalling the hub.
func (h *Hub) Publish(update domain.StageUpdate) {
	h.cmdCh <- publishCmd{update: update}
}

// ClientCount returns the subscriber count for a job, -1 on timeout.
func (h *Hub) ClientCount(jobID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{jobID: jobID, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes all client connections and shuts the hub down.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Websocket hub stopped")
	case <-timer.Chan():
		slog.Warn("Websocket hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c)
		case publishCmd:
			h.handlePublish(c.update)
		case clientCountCmd:
			c.replyChannel <- len(h.clients[c.jobID])
		case stopCmd:
			h.closeAll("Server shutting down")
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	clients, exists := h.clients[c.jobID]
	if !exists {
		clients = make(jobClients)
		h.clients[c.jobID] = clients
	}

	if len(clients) >= h.maxClientsPerJob {
		slog.Warn("Rejecting subscriber: max clients reached", "job_id", c.jobID, "max_clients", h.maxClientsPerJob)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients per job (%d) reached", h.maxClientsPerJob)
		return
	}

	clients[c.connection] = newClientWriter(c.connection, h.clock)
	metrics.WSConnectionsCurrent.Inc()

	slog.Debug("Subscriber registered", "job_id", c.jobID, "total_clients", len(clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	clients, exists := h.clients[c.jobID]
	if !exists {
		return
	}
	cw, exists := clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, c.connection)
	metrics.WSConnectionsCurrent.Dec()

	if len(clients) == 0 {
		delete(h.clients, c.jobID)
	}
}

func (h *Hub) handlePublish(update domain.StageUpdate) {
	clients, exists := h.clients[update.JobID]
	if !exists {
		return
	}

	data, err := json.Marshal(update)
	if err != nil {
		slog.Error("Failed to marshal stage update", "job_id", update.JobID, "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, writer := range clients {
		select {
		case writer.sendChannel <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "job_id", update.JobID)
		metrics.WSSlowClientsEvicted.Inc()
		h.handleUnregister(unregisterCmd{jobID: update.JobID, connection: conn})
	}
}

func (h *Hub) closeAll(reason string) {
	for jobID, clients := range h.clients {
		for _, cw := range clients {
			cw.stopGraceful(reason)
			metrics.WSConnectionsCurrent.Dec()
		}
		delete(h.clients, jobID)
	}
}
