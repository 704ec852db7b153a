package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/forge/display"
	"github.com/teranos/forge/errors"
)

// HistoryCmd lists recorded render runs from the ledger.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded render runs",
	Long: `Show render runs recorded in the ledger, newest first.

Examples:
  forge history                    # Runs for every destination
  forge history --out ./todo       # Runs for one project
  forge history --out ./todo --forget   # Drop the project's history and digests`,
	RunE: runHistory,
}

var (
	historyOut    string
	historyLimit  int
	historyForget bool
)

func init() {
	HistoryCmd.Flags().StringVarP(&historyOut, "out", "o", "", "Only show runs for this destination")
	HistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show")
	HistoryCmd.Flags().BoolVar(&historyForget, "forget", false, "Delete recorded runs and digests for --out")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return errors.WithHint(errors.New("the ledger is disabled"), "set ledger.enabled = true to record runs")
	}

	root := ""
	if historyOut != "" {
		if root, err = filepath.Abs(historyOut); err != nil {
			return errors.Wrapf(err, "failed to resolve %s", historyOut)
		}
	}

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	if historyForget {
		if root == "" {
			return errors.WithHint(errors.New("--forget needs a destination"), "pass --out <dir>")
		}
		n, err := l.Forget(ctx, root)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d runs for %s\n", n, root)
		return nil
	}

	runs, err := l.History(ctx, root, historyLimit)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	data := pterm.TableData{{"Started", "App", "Mode", "Created", "Updated", "Skipped", "Destination"}}
	for _, run := range runs {
		data = append(data, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.App,
			string(run.Mode),
			strconv.Itoa(run.Created),
			strconv.Itoa(run.Updated),
			strconv.Itoa(run.Skipped),
			run.Root,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}
