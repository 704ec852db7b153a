package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/forge/artifact"
)

// RenderCmd renders a Specification into a project directory.
var RenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a Specification into a project directory",
	Long: `Render a Specification into a project directory.

Without --incremental the destination must be empty or missing, and every
artifact is created. With --incremental forge updates an existing project:
identical files are skipped, files you own (.env) are never touched, and
generated files that differ are overwritten. When the ledger is enabled forge
warns about overwritten files that were edited since the last run.

Examples:
  forge render --spec todo.json --out ./todo
  forge render -s todo.yaml -o ./todo --incremental -v
  forge render -s git::https://github.com/acme/specs.git//todo.json -o ./todo`,
	RunE: runRender,
}

var renderFlags pipelineFlags

func init() {
	renderFlags.register(RenderCmd, true)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := loadSpec(ctx, renderFlags.spec)
	if err != nil {
		return err
	}

	r, cleanup, err := buildRenderer(cfg, &renderFlags, true)
	if err != nil {
		return err
	}
	defer cleanup()

	mode := artifact.ModeFor(renderFlags.mode(cmd, cfg))
	report, err := r.Render(ctx, s, renderFlags.destination(cfg), mode)
	if report != nil {
		if perr := printReport(cmd, report); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
