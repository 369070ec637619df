// Package client provides an HTTP/websocket client for a running converse
// observer server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Snapshot mirrors the server's observer payload: the active conversation's
// identity and display projection.
type Snapshot struct {
	Identity string                  `json:"identity"`
	Messages []models.DisplayMessage `json:"messages"`
}

// Client talks to a converse observer server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new observer client.
// If endpoint is empty, uses CONVERSE_SERVER_URL env var or defaults to localhost:8585.
// Timeout can be configured via CONVERSE_CLIENT_TIMEOUT env var.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("CONVERSE_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8585"
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	timeout := 30 * time.Second
	if t := os.Getenv("CONVERSE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Health checks whether the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}

// Stats fetches the server's runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server error: %s - %s", resp.Status, string(body))
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}
	return &snap, nil
}

// Observe connects to the server's websocket and invokes onSnapshot for every
// pushed conversation snapshot until the context is canceled, the connection
// drops, or the callback returns an error.
func (c *Client) Observe(ctx context.Context, onSnapshot func(Snapshot) error) error {
	// Convert HTTP endpoint to WebSocket endpoint
	wsEndpoint := c.endpoint + "/ws"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	// Close the connection when the context ends so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var snapshot Snapshot
		if err := conn.ReadJSON(&snapshot); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := onSnapshot(snapshot); err != nil {
			return err
		}
	}
}
