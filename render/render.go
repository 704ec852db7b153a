// Package render is the pipeline entry point: it plans a Specification in
// full, then synchronizes the plan into a destination, then records the run.
// Nothing touches the filesystem until planning has succeeded.
package render

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/filesync"
	"github.com/teranos/forge/ledger"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/planner"
	"github.com/teranos/forge/spec"
	"github.com/teranos/forge/templates"
	"github.com/teranos/forge/vcs"
)

// Renderer runs the render pipeline.
type Renderer struct {
	registry *templates.Registry
	enricher planner.Enricher
	ledger   *ledger.Ledger
	gitInit  bool
	logger   *zap.SugaredLogger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRegistry replaces the built-in template registry.
func WithRegistry(r *templates.Registry) Option {
	return func(rn *Renderer) { rn.registry = r }
}

// WithEnricher enables design enrichment during planning.
func WithEnricher(e planner.Enricher) Option {
	return func(rn *Renderer) { rn.enricher = e }
}

// WithLedger records runs and detects overwritten hand edits.
func WithLedger(l *ledger.Ledger) Option {
	return func(rn *Renderer) { rn.ledger = l }
}

// WithGitInit initializes a git repository after a successful ModeNew run.
func WithGitInit(enabled bool) Option {
	return func(rn *Renderer) { rn.gitInit = enabled }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(rn *Renderer) { rn.logger = l }
}

// New creates a Renderer over the built-in templates.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		registry: templates.Builtin(),
		logger:   logger.ComponentLogger("render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan returns the artifact requests for s without touching the filesystem.
func (r *Renderer) Plan(ctx context.Context, s *spec.Specification, mode artifact.Mode) ([]artifact.Request, error) {
	var opts []planner.Option
	if r.enricher != nil {
		opts = append(opts, planner.WithEnricher(r.enricher))
	}
	return planner.New(r.registry, opts...).Plan(ctx, s, mode)
}

// Render plans s and writes it under dest. ModeNew requires dest to be empty
// or missing. On a filesystem failure the partial report is returned with
// the error.
func (r *Renderer) Render(ctx context.Context, s *spec.Specification, dest string, mode artifact.Mode) (*filesync.RenderReport, error) {
	return r.run(ctx, s, dest, mode, false)
}

// Check runs the pipeline without writing and reports what would change.
func (r *Renderer) Check(ctx context.Context, s *spec.Specification, dest string, mode artifact.Mode) (*filesync.RenderReport, error) {
	return r.run(ctx, s, dest, mode, true)
}

func (r *Renderer) run(ctx context.Context, s *spec.Specification, dest string, mode artifact.Mode, dryRun bool) (*filesync.RenderReport, error) {
	started := time.Now()
	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve destination %s", dest)
	}
	log := logger.ChildLogger(r.logger, logger.FieldApp, s.App.Name, logger.FieldRoot, root, logger.FieldMode, string(mode))

	if mode == artifact.ModeNew {
		if err := ensureEmpty(root); err != nil {
			return nil, err
		}
	}

	requests, err := r.Plan(ctx, s, mode)
	if err != nil {
		return nil, err
	}
	log.Infow("Planned artifacts", logger.FieldArtifacts, len(requests))

	if mode == artifact.ModeIncremental && !dryRun {
		r.warnUncommitted(log, root, requests)
	}

	opts := []filesync.Option{filesync.WithLogger(log.Named("filesync"))}
	if r.ledger != nil {
		opts = append(opts, filesync.WithEditGuard(r.ledger))
	}
	if dryRun {
		opts = append(opts, filesync.WithDryRun())
	}

	report, syncErr := filesync.Synchronize(requests, root, mode, opts...)
	if dryRun {
		return report, syncErr
	}

	if r.ledger != nil && report != nil && len(report.Results) > 0 {
		r.record(ctx, log, s, report, started)
	}
	if syncErr != nil {
		return report, syncErr
	}

	if mode == artifact.ModeNew && r.gitInit {
		created, err := vcs.InitRepository(root)
		if err != nil {
			// the project itself is complete; a missing repository is not fatal
			log.Warnw("git init failed", logger.FieldError, err)
		} else if created {
			log.Infow("Initialized git repository")
		}
	}
	return report, nil
}

// ensureEmpty accepts a missing directory or an empty one.
func ensureEmpty(root string) error {
	entries, err := os.ReadDir(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return &filesync.FilesystemError{Op: "read", Path: root, Err: err}
	case len(entries) > 0:
		return errors.WithHint(
			errors.Wrapf(errors.ErrDestinationNotEmpty, "%s contains %d entries", root, len(entries)),
			"re-run with --incremental to update an existing project",
		)
	}
	return nil
}

func (r *Renderer) warnUncommitted(log *zap.SugaredLogger, root string, requests []artifact.Request) {
	dirty, err := vcs.Uncommitted(root)
	if err != nil {
		log.Debugw("Could not read git status", logger.FieldError, err)
		return
	}
	if len(dirty) == 0 {
		return
	}
	planned := make(map[string]bool, len(requests))
	for _, req := range requests {
		if req.Kind == artifact.KindFile && req.Policy == artifact.PolicySync {
			planned[req.Path] = true
		}
	}
	for _, p := range dirty {
		if planned[p] {
			log.Warnw("Generated file has uncommitted changes and may be overwritten", logger.FieldPath, p)
		}
	}
}

// record stores the run in the ledger. Ledger failures are logged only.
func (r *Renderer) record(ctx context.Context, log *zap.SugaredLogger, s *spec.Specification, report *filesync.RenderReport, started time.Time) {
	run := ledger.Run{
		Root:       report.Root,
		App:        s.App.Name,
		Mode:       report.Mode,
		SpecDigest: Digest(s),
		StartedAt:  started,
	}
	var files []ledger.FileRecord
	for _, res := range report.Results {
		switch res.Outcome {
		case artifact.Created:
			run.Created++
		case artifact.Updated:
			run.Updated++
		default:
			run.Skipped++
		}
		// seeds skipped as no-op belong to the user; their content is not ours
		if res.Kind == artifact.KindFile.String() && res.Outcome != artifact.SkippedNoop {
			files = append(files, ledger.FileRecord{Path: res.Path, Digest: res.Digest, Outcome: res.Outcome})
		}
	}
	stored, err := r.ledger.RecordRun(ctx, run, files)
	if err != nil {
		log.Warnw("Failed to record run in ledger", logger.FieldError, err)
		return
	}
	log.Debugw("Run recorded", logger.FieldRunID, stored.ID)
}

// Digest identifies a Specification by the SHA-256 of its canonical JSON.
func Digest(s *spec.Specification) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return artifact.Digest(b)
}
