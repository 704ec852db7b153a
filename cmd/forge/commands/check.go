package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/forge/artifact"
)

// CheckCmd reports what an incremental render would change.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report what a render would change, without writing",
	Long: `Report what a render would change, without writing anything.

check runs the full pipeline in dry-run mode against an existing project and
exits with status 2 when any artifact would be created or updated, which makes
it usable in CI to verify a generated project is in sync with its Specification.

Examples:
  forge check --spec todo.json --out ./todo
  forge check -s todo.json -o ./todo --json`,
	RunE: runCheck,
}

var checkFlags pipelineFlags

func init() {
	checkFlags.register(CheckCmd, false)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := loadSpec(ctx, checkFlags.spec)
	if err != nil {
		return err
	}

	r, cleanup, err := buildRenderer(cfg, &checkFlags, false)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := r.Check(ctx, s, checkFlags.destination(cfg), artifact.ModeIncremental)
	if report != nil {
		if perr := printReport(cmd, report); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return err
	}
	if report.Changed() {
		return ErrOutOfDate
	}
	return nil
}
