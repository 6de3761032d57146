// Package mcp exposes the agent bridge as a Model Context Protocol server,
// over stdio for local clients or streamable HTTP for remote ones.
package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/metrics"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// generateRequestID creates a unique request identifier
func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Server wraps the MCP server around a bridge
type Server struct {
	bridge    *bridge.Bridge
	registry  *Registry
	mcpServer *mcp.Server
	events    *EventLog
}

// ServerConfig holds HTTP transport settings
type ServerConfig struct {
	// Token, when set, is required as a Bearer token on /mcp
	Token string
	// RequestsPerSecond and Burst limit each client; zero uses the defaults
	RequestsPerSecond float64
	Burst             int
}

// NewServer creates an MCP server exposing b
func NewServer(b *bridge.Bridge, version string) *Server {
	s := &Server{
		bridge:   b,
		registry: NewRegistry(),
		events:   NewEventLog(DefaultEventLogSize),
	}
	s.registerAllTools(s.registry)

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "sumone",
		Version: version,
	}, nil)
	s.registry.RegisterWithMCPServer(s.mcpServer)
	return s
}

// GetRegistry returns the tool registry
func (s *Server) GetRegistry() *Registry {
	return s.registry
}

// ServeStdio serves one client over stdin/stdout until ctx ends or the
// client disconnects
func (s *Server) ServeStdio(ctx context.Context) error {
	logger.Info("🔌 MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP handler: /health and /metrics unauthenticated,
// /mcp behind the optional token and the rate limiter
func (s *Server) Handler(cfg ServerConfig) http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	loggingHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		logger.Info("HTTP %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mcpHandler.ServeHTTP(w, r)
	})

	limiter := DefaultRateLimiter()
	if cfg.RequestsPerSecond > 0 && cfg.Burst > 0 {
		limiter = NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	protected := RateLimitMiddleware(limiter)(BearerMiddleware(cfg.Token)(loggingHandler))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealthCheck)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/mcp", protected)
	mux.Handle("/mcp/", protected)
	return mux
}

// Serve listens on addr until ctx is cancelled
func (s *Server) Serve(ctx context.Context, addr string, cfg ServerConfig) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("🚀 sumone MCP server listening on %s", addr)
	logger.Info("💚 Health check: http://%s/health", addr)
	logger.Info("📊 Metrics: http://%s/metrics", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealthCheck is a basic liveness check
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
