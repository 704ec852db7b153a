package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/forge/am"
	"github.com/teranos/forge/cmd/forge/commands"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge - declarative application scaffolder",
	Long: `forge - declarative application scaffolder

forge turns an application Specification (stack, components, pages, routes,
models, styling) into a working project tree, and can be re-run against a
project it generated earlier without touching the files you own.

Available commands:
  render  - Render a Specification into a project directory
  check   - Report what a render would change, without writing
  plan    - List the artifacts a Specification implies
  watch   - Re-render whenever the Specification changes
  history - Show recorded render runs
  am      - Manage forge configuration

Examples:
  forge render --spec todo.json --out ./todo
  forge render --spec todo.yaml --out ./todo --incremental
  forge check --spec todo.json --out ./todo
  forge plan --spec https://example.com/specs/todo.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs := false
		if cfg, err := am.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
			logger.SetTheme(cfg.GetLogTheme())
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Write machine-readable JSON to stdout")

	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.PlanCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if errors.Is(err, commands.ErrOutOfDate) {
		os.Exit(commands.ExitOutOfDate)
	}
	pterm.Error.WithWriter(os.Stderr).Println(err.Error())
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintln(os.Stderr, pterm.Gray("hint: "+hint))
	}
	os.Exit(1)
}
