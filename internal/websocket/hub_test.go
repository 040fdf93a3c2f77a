package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
)

func newSubscriberServer(t *testing.T, hub *Hub, jobID uuid.UUID) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_ = hub.Register(jobID, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)
	defer hub.Stop()

	jobID := uuid.New()
	srv := newSubscriberServer(t, hub, jobID)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount(jobID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sent := domain.StageUpdate{
		JobID:     jobID,
		Stage:     domain.StageReasoning,
		Status:    "running",
		Timestamp: time.Now().UTC(),
	}
	hub.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var received domain.StageUpdate
	require.NoError(t, json.Unmarshal(data, &received))
	assert.Equal(t, sent.JobID, received.JobID)
	assert.Equal(t, domain.StageReasoning, received.Stage)
	assert.Equal(t, "running", received.Status)
}

func TestHub_PublishToUnknownJobIsNoop(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)
	defer hub.Stop()

	// Must not panic or block
	hub.Publish(domain.StageUpdate{JobID: uuid.New(), Stage: domain.StageRetrieval})
	assert.Equal(t, 0, hub.ClientCount(uuid.New()))
}

func TestHub_MaxClientsPerJob(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 1)
	defer hub.Stop()

	jobID := uuid.New()
	srv := newSubscriberServer(t, hub, jobID)

	dial(t, srv)
	require.Eventually(t, func() bool {
		return hub.ClientCount(jobID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Second subscriber is rejected; count stays at the limit
	dial(t, srv)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount(jobID))
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)

	jobID := uuid.New()
	srv := newSubscriberServer(t, hub, jobID)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount(jobID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err) // close frame terminates the read
}
