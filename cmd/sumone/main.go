// Command sumone drives Claude, Codex and Gemini coding-agent CLIs through
// one normalized interface.
//
// Commands:
//   - run: send one message to the active provider
//   - mcp: serve the bridge as an MCP server over stdio or HTTP
//   - use, model: select the provider and model for later runs
//   - tokens, sessions, files: inspect usage, summaries and modified files
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/config"
	"github.com/xmin-02/sumone/internal/logger"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

type rootFlags struct {
	configDir string
	verbose   bool
}

func main() {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "sumone",
		Short:   "Run AI coding-agent CLIs behind one interface",
		Version: Version,
		Long: `sumone spawns the Claude, Codex or Gemini CLI, normalizes its event
stream and keeps sessions, token usage and file modifications across runs.

Use 'run' for a single message or 'mcp' to expose the bridge to MCP clients.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configDir, "dir", "", "Directory containing sumone.jsonc")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Mirror log output to stderr")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newMCPCmd(flags))
	rootCmd.AddCommand(newUseCmd(flags))
	rootCmd.AddCommand(newModelCmd(flags))
	rootCmd.AddCommand(newTokensCmd(flags))
	rootCmd.AddCommand(newSessionsCmd(flags))
	rootCmd.AddCommand(newFilesCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openBridge loads configuration, starts file logging and opens the stores.
// The returned func closes both.
func openBridge(flags *rootFlags, opts bridge.Options) (*bridge.Bridge, func(), error) {
	cfg, err := config.LoadAll(flags.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.LogDir(), flags.verbose); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	b, err := bridge.Open(cfg, opts)
	if err != nil {
		_ = logger.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := b.Close(); err != nil {
			logger.Error("Failed to close bridge: %v", err)
		}
		_ = logger.Close()
	}
	return b, closeFn, nil
}
