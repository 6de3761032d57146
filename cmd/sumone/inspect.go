package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/tokens"
)

func newUseCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "use <provider>",
		Short: "Make a provider active, restoring its last session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBridge(root, bridge.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			switched, err := b.SwitchProvider(args[0])
			if err != nil {
				return err
			}
			if !switched {
				fmt.Printf("%s is already active\n", args[0])
				return nil
			}
			if id := b.State.CurrentSessionID(); id != "" {
				fmt.Printf("Switched to %s (session %s)\n", args[0], id)
			} else {
				fmt.Printf("Switched to %s (new session)\n", args[0])
			}
			return nil
		},
	}
}

func newModelCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "model [name]",
		Short: "Show or select the model for later runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBridge(root, bridge.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			if len(args) == 0 {
				cfg := b.Config()
				provider := b.State.Provider()
				model := b.State.Model()
				if model == "" {
					model = cfg.DefaultModel(provider) + " (default)"
				}
				fmt.Printf("%s: %s\n", provider, model)
				return nil
			}

			modelID, provider, err := b.SelectModel(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Selected %s on %s\n", modelID, provider)
			return nil
		},
	}
}

func newTokensCmd(root *rootFlags) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "tokens [session|day|month|year|total]",
		Short: "Summarize token usage and cost",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := string(tokens.PeriodDay)
			if len(args) == 1 {
				name = args[0]
			}
			period, err := tokens.ParsePeriod(name)
			if err != nil {
				return err
			}

			b, closeFn, err := openBridge(root, bridge.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			total, byProvider, err := b.Usage(period, sessionID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tRUNS\tIN\tOUT\tCACHED\tCOST")
			for _, name := range tokens.Providers(byProvider) {
				t := byProvider[name]
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t$%.4f\n", name, t.Runs, t.In, t.Out, t.Cached, t.Cost)
			}
			fmt.Fprintf(w, "total\t%d\t%d\t%d\t%d\t$%.4f\n", total.Runs, total.In, total.Out, total.Cached, total.Cost)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session for the session period (default: active)")
	return cmd
}

func newSessionsCmd(root *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored conversation summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBridge(root, bridge.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			infos, err := b.Sessions.List(limit)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No sessions found")
				return nil
			}

			current := b.State.CurrentSessionID()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tSESSION\tPROVIDER\tEXCHANGES\tMODIFIED\tPREVIEW")
			for _, info := range infos {
				marker := ""
				if info.ID == current {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					marker, info.ID, info.Provider, info.Exchanges,
					info.Modified.Format(time.DateTime), info.Preview)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")
	return cmd
}

func newFilesCmd(root *rootFlags) *cobra.Command {
	var limit int
	var clearLog bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List files modified by recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBridge(root, bridge.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			if clearLog {
				if err := b.Files.Clear(); err != nil {
					return err
				}
				fmt.Println("File log cleared")
				return nil
			}

			entries, err := b.Files.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No modified files recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tOP\tPATH\tSNAPSHOT")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.RunID, e.Op, e.Path, e.Snapshot)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to list")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "Delete the file log and its snapshots")
	return cmd
}
