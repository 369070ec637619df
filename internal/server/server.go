// Package server provides the HTTP observer server: websocket clients receive
// a fresh display snapshot of the active conversation after every state
// change.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Snapshot is the wire shape pushed to every observer: the active
// conversation's identity and its full display projection. Observers always
// receive complete snapshots, never deltas, so a missed update is harmless.
type Snapshot struct {
	Identity string                  `json:"identity"`
	Messages []models.DisplayMessage `json:"messages"`
}

// Server exposes the conversation over HTTP: /ws for live observation,
// /health and /stats for operational checks.
type Server struct {
	orchestrator *chat.Orchestrator
	metrics      *metrics.Collector
	logger       *slog.Logger
	upgrader     websocket.Upgrader
}

// New creates an observer server for the given orchestrator.
func New(orchestrator *chat.Orchestrator, mc *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orchestrator: orchestrator,
		metrics:      mc,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local observer tool, not exposed publicly
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the server's route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleObserve)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/stats", s.handleStats)
	return LoggingMiddleware(s.logger)(mux)
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	httpServer := &http.Server{
		Addr:        ":" + port,
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("observer server listening", "url", fmt.Sprintf("ws://localhost:%s/ws", port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down observer server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// handleObserve upgrades to a websocket and pushes a snapshot on connect and
// after every conversation change. The bus listener only flags a pending
// update; the connection's writer goroutine re-reads state, so a slow
// observer can never stall a generation.
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	unsubscribe := s.orchestrator.Bus().Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// Reader drains control frames and detects disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("observer connected", "remote", r.RemoteAddr)

	if err := s.writeSnapshot(conn); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-changed:
			if err := s.writeSnapshot(conn); err != nil {
				s.logger.Info("observer disconnected", "remote", r.RemoteAddr)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-disconnected:
			s.logger.Info("observer disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	snapshot := Snapshot{
		Identity: s.orchestrator.ActiveIdentity(),
		Messages: s.orchestrator.DisplayMessages(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(snapshot)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.metrics.Snapshot(), s.logger)
}
