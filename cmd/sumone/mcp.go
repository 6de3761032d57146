package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/mcp"
	"github.com/xmin-02/sumone/internal/metrics"
)

type mcpFlags struct {
	http     bool
	addr     string
	token    string
	jsonLogs bool
}

func newMCPCmd(root *rootFlags) *cobra.Command {
	flags := &mcpFlags{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the bridge as an MCP server",
		Long: `Serve agent_run, agent, session, usage and files as MCP tools.

By default the server speaks MCP over stdin/stdout for a local client.
With --http it serves streamable HTTP on /mcp, plus /health and /metrics.`,
		Example: `  sumone mcp
  sumone mcp --http --addr 0.0.0.0:8765 --token "$SUMONE_MCP_TOKEN"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, root, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.http, "http", false, "Serve streamable HTTP instead of stdio")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address (default from mcp_address)")
	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token required on /mcp (default from mcp_token)")
	cmd.Flags().BoolVar(&flags.jsonLogs, "json-logs", false, "Emit structured logs as JSON")

	return cmd
}

func runMCP(cmd *cobra.Command, root *rootFlags, flags *mcpFlags) error {
	b, closeFn, err := openBridge(root, bridge.Options{})
	if err != nil {
		return err
	}
	defer closeFn()

	cfg := b.Config()
	if err := logger.InitSlog(cfg.LogDir(), flags.jsonLogs); err != nil {
		return err
	}
	defer func() { _ = logger.CloseSlog() }()

	if err := b.StartCleaner(); err != nil {
		logger.Error("Failed to start cleanup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(b, Version)

	if !flags.http {
		if addr := cfg.Settings.MetricsAddress; addr != "" {
			go serveMetrics(ctx, addr)
		}
		err := server.ServeStdio(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	addr := flags.addr
	if addr == "" {
		addr = cfg.Settings.MCPAddress
	}
	token := flags.token
	if token == "" {
		token = cfg.Settings.MCPToken
	}
	if token == "" {
		logger.Info("⚠️  No MCP token configured; /mcp is unauthenticated")
	}

	return server.Serve(ctx, addr, mcp.ServerConfig{Token: token})
}

// serveMetrics exposes /metrics on addr while the stdio server runs
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("📊 Metrics: http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed: %v", err)
	}
}
