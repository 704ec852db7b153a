// Package commands implements the forge CLI.
package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/am"
	"github.com/teranos/forge/design"
	"github.com/teranos/forge/display"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/filesync"
	"github.com/teranos/forge/ledger"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/render"
	"github.com/teranos/forge/report"
	"github.com/teranos/forge/spec"
)

// ExitOutOfDate is the exit status of `forge check` when a render would change files.
const ExitOutOfDate = 2

// ErrOutOfDate is returned by check when the project differs from the Specification.
var ErrOutOfDate = errors.New("project is out of date")

// loadConfig loads and validates the layered configuration.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "invalid configuration"),
			"run 'forge am where' to see which file sets each value",
		)
	}
	return cfg, nil
}

// loadSpec reads a local document or fetches a remote one.
func loadSpec(ctx context.Context, source string) (*spec.Specification, error) {
	if source == "" {
		return nil, errors.WithHint(errors.New("no specification given"), "pass --spec <file or URL>")
	}
	return spec.Fetch(ctx, source)
}

// pipelineFlags are shared by render, check and watch.
type pipelineFlags struct {
	spec        string
	out         string
	incremental bool
	noLedger    bool
	noDesign    bool
}

func (f *pipelineFlags) register(cmd *cobra.Command, withIncremental bool) {
	cmd.Flags().StringVarP(&f.spec, "spec", "s", "", "Specification file or remote source (https://, git::, s3::)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Destination directory (default: render.out)")
	if withIncremental {
		cmd.Flags().BoolVarP(&f.incremental, "incremental", "i", false, "Update an existing project (default: render.incremental)")
	}
	cmd.Flags().BoolVar(&f.noLedger, "no-ledger", false, "Do not record this run or check for overwritten edits")
	cmd.Flags().BoolVar(&f.noDesign, "no-design", false, "Skip design enrichment even when configured")
	_ = cmd.MarkFlagRequired("spec")
}

func (f *pipelineFlags) destination(cfg *am.Config) string {
	if f.out != "" {
		return f.out
	}
	return cfg.Render.Out
}

func (f *pipelineFlags) mode(cmd *cobra.Command, cfg *am.Config) bool {
	if flag := cmd.Flags().Lookup("incremental"); flag != nil && flag.Changed {
		return f.incremental
	}
	return cfg.Render.Incremental
}

// buildRenderer wires the collaborators the configuration enables. The
// returned cleanup closes the ledger.
func buildRenderer(cfg *am.Config, f *pipelineFlags, gitInit bool) (*render.Renderer, func(), error) {
	log := logger.ComponentLogger("render")
	opts := []render.Option{render.WithLogger(log), render.WithGitInit(gitInit && cfg.Git.Init)}
	cleanup := func() {}

	if cfg.Design.Enabled && !f.noDesign {
		client, err := design.NewClient(design.Config{
			Endpoint:  cfg.Design.Endpoint,
			APIKey:    cfg.Design.APIKey,
			Timeout:   cfg.GetDesignTimeout(),
			CacheSize: cfg.Design.CacheSize,
		})
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, render.WithEnricher(client))
	}

	if cfg.Ledger.Enabled && !f.noLedger {
		l, err := openLedger(cfg)
		if err != nil {
			// the ledger is advisory; rendering goes ahead without it
			log.Warnw("Ledger unavailable, continuing without run history", logger.FieldError, err)
		} else {
			opts = append(opts, render.WithLedger(l))
			cleanup = func() { l.Close() }
		}
	}
	return render.New(opts...), cleanup, nil
}

func openLedger(cfg *am.Config) (*ledger.Ledger, error) {
	path := cfg.GetLedgerPath()
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create ledger directory %s", filepath.Dir(path))
	}
	return ledger.Open(path, logger.ComponentLogger("ledger"))
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

// printReport writes the report as JSON or as the pterm summary.
func printReport(cmd *cobra.Command, r *filesync.RenderReport) error {
	if display.ShouldOutputJSON(cmd) {
		return report.WriteJSON(cmd.OutOrStdout(), r)
	}
	report.Print(cmd.OutOrStdout(), r, verbosity(cmd))
	return nil
}

// isEmptyDir reports whether dir is missing or has no entries.
func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
