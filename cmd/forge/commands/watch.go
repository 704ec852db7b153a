package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/spec"
	"github.com/teranos/forge/watch"
)

// WatchCmd re-renders whenever the Specification file changes.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render whenever the Specification changes",
	Long: `Watch a local Specification file and re-render incrementally on every change.

The first pass creates the project when the destination is empty; later passes
are incremental. Invalid intermediate edits are reported and watching
continues. Re-renders are debounced (watch.debounce_ms) and capped
(watch.max_renders_per_minute). Stop with Ctrl-C.

Examples:
  forge watch --spec todo.json --out ./todo
  forge watch -s todo.yaml -o ./todo -v`,
	RunE: runWatch,
}

var watchFlags pipelineFlags

func init() {
	watchFlags.register(WatchCmd, false)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if spec.IsRemote(watchFlags.spec) {
		return errors.WithHint(
			errors.Newf("cannot watch remote source %s", watchFlags.spec),
			"download the document and watch the local copy",
		)
	}

	r, cleanup, err := buildRenderer(cfg, &watchFlags, true)
	if err != nil {
		return err
	}
	defer cleanup()

	dest := watchFlags.destination(cfg)
	renderOnce := func(ctx context.Context) error {
		s, err := spec.LoadFile(watchFlags.spec)
		if err != nil {
			return err
		}
		mode := artifact.ModeIncremental
		if empty, err := isEmptyDir(dest); err == nil && empty {
			mode = artifact.ModeNew
		}
		report, err := r.Render(ctx, s, dest, mode)
		if report != nil {
			if perr := printReport(cmd, report); perr != nil && err == nil {
				err = perr
			}
		}
		return err
	}

	w := watch.New(watchFlags.spec, renderOnce,
		watch.WithDebounce(cfg.GetWatchDebounce()),
		watch.WithMaxRendersPerMinute(cfg.Watch.MaxRendersPerMinute),
		watch.WithLogger(logger.ComponentLogger("watch")),
	)
	return w.Run(cmd.Context())
}
