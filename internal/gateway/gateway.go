// Package gateway exposes the HTTP and WebSocket API: user and document
// management, indexing, and question answering.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"docgate/internal/agent"
	"docgate/internal/database"
	"docgate/internal/retrieval"
	"docgate/internal/version"
)

// Gateway wires the stores and the answering pipeline behind an HTTP server.
type Gateway struct {
	port      int
	store     *database.Store
	retrieval *retrieval.Service
	pipeline  *agent.Pipeline
	upgrader  websocket.Upgrader
	startedAt time.Time

	// Lifecycle context for WebSocket handlers. HTTP request contexts are
	// cancelled when the handler returns, which is immediate after the
	// upgrade; WebSocket goroutines need the server's lifetime instead.
	ctx context.Context
}

// New creates a gateway listening on the given port.
func New(port int, store *database.Store, retr *retrieval.Service, pipeline *agent.Pipeline) *Gateway {
	return &Gateway{
		port:      port,
		store:     store,
		retrieval: retr,
		pipeline:  pipeline,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the deployment domain is fixed
				return true
			},
		},
	}
}

// Handler returns the route table. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", g.handleHealth)
	mux.HandleFunc("/api/users", g.handleCreateUser)
	mux.HandleFunc("/api/users/{id}/documents", g.handleListDocuments)
	mux.HandleFunc("/api/documents", g.handleCreateDocument)
	mux.HandleFunc("/api/documents/index", g.handleIndexDocument)
	mux.HandleFunc("/api/search", g.handleSearch)
	mux.HandleFunc("/api/ask", g.handleAsk)
	mux.HandleFunc("/api/ws", g.handleWebSocket)
	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	g.ctx = ctx
	g.startedAt = time.Now()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", g.port),
		Handler: g.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Gateway] listening on :%d", g.port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("gateway: serve: %w", err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HealthResponse is the /api/health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime"`
}

// handleHealth handles GET /api/health
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := "healthy"
	if err := g.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}

	uptime := "unknown"
	if !g.startedAt.IsZero() {
		uptime = time.Since(g.startedAt).Round(time.Second).String()
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version.Info(),
		Uptime:    uptime,
	})
}
