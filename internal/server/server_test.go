package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
	"github.com/raphaelgruber/converse-go/internal/server"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// echoEngine replies with a fixed fragment.
type echoEngine struct{}

func (echoEngine) StreamChat(ctx context.Context, conv []models.LLMMessage, onDelta func(string) error) error {
	return onDelta("reply")
}

func newTestServer(t *testing.T) (*httptest.Server, *chat.Orchestrator) {
	t.Helper()
	orchestrator := chat.NewOrchestrator(chat.NewRegistry(nil), echoEngine{}, nil, nil, chat.NewBus(), testLogger())
	srv := server.New(orchestrator, metrics.NewCollector(), testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, orchestrator
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestObserverReceivesInitialSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	var snapshot server.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))

	assert.Equal(t, "default", snapshot.Identity)
	assert.Empty(t, snapshot.Messages)
}

func TestObserverReceivesConversationUpdates(t *testing.T) {
	ts, orchestrator := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Drain the initial snapshot first.
	var snapshot server.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))

	_, err = orchestrator.Send(context.Background(), "hello", models.Context{})
	require.NoError(t, err)

	// Intermediate snapshots may be coalesced; read until the turn settles.
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "timed out waiting for settled snapshot")
		require.NoError(t, conn.SetReadDeadline(deadline))
		require.NoError(t, conn.ReadJSON(&snapshot))
		if len(snapshot.Messages) == 2 && snapshot.Messages[1].Status == models.StatusComplete {
			break
		}
	}

	assert.Equal(t, models.RoleUser, snapshot.Messages[0].Role)
	assert.Equal(t, "hello", snapshot.Messages[0].DisplayText)
	assert.Equal(t, "reply", snapshot.Messages[1].DisplayText)
}

func TestObserverUnsubscribedOnDisconnect(t *testing.T) {
	ts, orchestrator := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)

	var snapshot server.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.NoError(t, conn.Close())

	// A mutation after disconnect must not block or panic.
	time.Sleep(100 * time.Millisecond)
	_, err = orchestrator.Send(context.Background(), "after disconnect", models.Context{})
	require.NoError(t, err)
}
