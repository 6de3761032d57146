package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xmin-02/sumone/internal/agent"
	"github.com/xmin-02/sumone/internal/bridge"
)

type runFlags struct {
	provider   string
	model      string
	sessionID  string
	newSession bool
	quiet      bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] <message>",
		Short: "Send one message to the active provider",
		Example: `  sumone run "Add a unit test for the parser"
  sumone run --provider codex --new "Start over and explain main.go"
  echo "Summarize the README" | sumone run`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessage(cmd, args, root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.provider, "provider", "", "Provider to switch to first: claude, codex, gemini")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model alias or id, e.g. opus, codex-mini, flash")
	cmd.Flags().StringVar(&flags.sessionID, "session", "", "Continue this session instead of the bound one")
	cmd.Flags().BoolVar(&flags.newSession, "new", false, "Start a fresh conversation")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Hide status lines and intermediate text")

	return cmd
}

func runMessage(cmd *cobra.Command, args []string, root *rootFlags, flags *runFlags) error {
	message := strings.Join(args, " ")
	if message == "" {
		message = readFromStdin()
	}
	if message == "" {
		_ = cmd.Usage()
		return fmt.Errorf("no message provided")
	}

	b, closeFn, err := openBridge(root, bridge.Options{})
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := b.Ask(ctx, bridge.AskRequest{
		Message:    message,
		Provider:   flags.provider,
		Model:      flags.model,
		SessionID:  flags.sessionID,
		NewSession: flags.newSession,
	}, terminalCallbacks(os.Stderr, flags.quiet))
	if err != nil {
		return err
	}

	fmt.Println(res.Output)
	printQuestions(os.Stdout, res.Questions)
	if res.SessionID != "" {
		fmt.Fprintf(os.Stderr, "\nsession: %s (%s)\n", res.SessionID, b.State.Provider())
	}
	return nil
}

// terminalCallbacks prints progress to w. Intermediate text is shown dimmed
// so it is not mistaken for the final output on stdout.
func terminalCallbacks(w io.Writer, quiet bool) *agent.Callbacks {
	if quiet {
		return nil
	}
	return &agent.Callbacks{
		OnText: func(text string) {
			fmt.Fprintf(w, "\033[2m%s\033[0m\n\n", text)
		},
		OnStatus: func(label string, elapsed time.Duration) {
			fmt.Fprintf(w, "%s (%ds)\n", label, int(elapsed.Seconds()))
		},
		OnFileLink: func(hadNewFiles bool) {
			if hadNewFiles {
				fmt.Fprintln(w, "📁 Files modified; see 'sumone files'")
			}
		},
	}
}

func printQuestions(w io.Writer, questions []agent.Question) {
	for _, q := range questions {
		fmt.Fprintf(w, "\n❓ %s\n", agent.GetString(q, "question"))
		options, _ := agent.GetSlice(q, "options")
		for i, item := range options {
			opt, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			label := agent.GetString(opt, "label")
			if desc := agent.GetString(opt, "description"); desc != "" {
				fmt.Fprintf(w, "  %d. %s - %s\n", i+1, label, desc)
			} else {
				fmt.Fprintf(w, "  %d. %s\n", i+1, label)
			}
		}
	}
}

func readFromStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
