// Package filesync reconciles planned artifact requests with a destination
// directory. Requests are applied one at a time in plan order; a file whose
// bytes already match is never rewritten, so repeated runs leave mtimes alone.
package filesync

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

const (
	filePerm       fs.FileMode = 0o644
	executablePerm fs.FileMode = 0o755
	dirPerm        fs.FileMode = 0o755
)

// Result is the outcome of one request.
type Result struct {
	Path     string            `json:"path"`
	Category artifact.Category `json:"category"`
	Kind     string            `json:"kind"`
	Outcome  artifact.Outcome  `json:"outcome"`
	Digest   string            `json:"digest,omitempty"`
	Size     int               `json:"size"`
	// OverwroteEdit is set when an Updated file had been changed since forge last wrote it
	OverwroteEdit bool `json:"overwrote_edit,omitempty"`
}

// RenderReport collects results in request order.
type RenderReport struct {
	Root    string        `json:"root"`
	Mode    artifact.Mode `json:"mode"`
	DryRun  bool          `json:"dry_run"`
	Results []Result      `json:"results"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Outcomes returns the outcome of every result, in order.
func (r *RenderReport) Outcomes() []artifact.Outcome {
	out := make([]artifact.Outcome, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Outcome
	}
	return out
}

// Lookup returns the result for path, if the pass reached it.
func (r *RenderReport) Lookup(path string) (Result, bool) {
	for _, res := range r.Results {
		if res.Path == path {
			return res, true
		}
	}
	return Result{}, false
}

// Changed reports whether any request wrote (or, in a dry run, would write).
func (r *RenderReport) Changed() bool {
	for _, res := range r.Results {
		if res.Outcome.Wrote() {
			return true
		}
	}
	return false
}

// FilesystemError aborts a pass. Completed counts the requests applied before it.
type FilesystemError struct {
	Op        string
	Path      string
	Completed int
	Err       error
}

func (e *FilesystemError) Error() string {
	return "failed to " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errors.ErrFilesystem) match.
func (e *FilesystemError) Is(target error) bool {
	return target == errors.ErrFilesystem
}

// EditGuard reports the digest forge last wrote at path under root.
// ok is false when forge has no record of the file.
type EditGuard interface {
	LastDigest(root, path string) (digest string, ok bool, err error)
}

// Option configures a pass.
type Option func(*syncer)

// WithEditGuard enables detection of overwritten hand edits.
func WithEditGuard(g EditGuard) Option {
	return func(s *syncer) { s.guard = g }
}

// WithDryRun computes outcomes without touching the filesystem.
func WithDryRun() Option {
	return func(s *syncer) { s.dryRun = true }
}

// WithLogger sets the pass logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *syncer) { s.logger = l }
}

type syncer struct {
	root   string
	guard  EditGuard
	dryRun bool
	logger *zap.SugaredLogger
}

// Synchronize applies requests under root. On error it returns the partial
// report together with a *FilesystemError; files already written stay written.
func Synchronize(requests []artifact.Request, root string, mode artifact.Mode, opts ...Option) (*RenderReport, error) {
	s := &syncer{root: root, logger: logger.ComponentLogger("filesync")}
	for _, opt := range opts {
		opt(s)
	}

	start := time.Now()
	report := &RenderReport{Root: root, Mode: mode, DryRun: s.dryRun, Results: make([]Result, 0, len(requests))}
	defer func() { report.Elapsed = time.Since(start) }()

	for i, req := range requests {
		res, err := s.apply(req)
		if err != nil {
			fsErr := &FilesystemError{Path: req.Path, Completed: i, Op: "write", Err: err}
			var opErr *opError
			if errors.As(err, &opErr) {
				fsErr.Op, fsErr.Err = opErr.op, opErr.err
			}
			s.logger.Errorw("Synchronization aborted",
				logger.FieldPath, req.Path,
				logger.FieldCount, i,
				logger.FieldError, fsErr.Err,
			)
			return report, fsErr
		}
		report.Results = append(report.Results, res)
		s.logger.Debugw("Synchronized",
			logger.FieldPath, res.Path,
			logger.FieldCategory, string(res.Category),
			logger.FieldOutcome, string(res.Outcome),
		)
	}
	return report, nil
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func fail(op string, err error) error { return &opError{op: op, err: err} }

// resolve maps a request path onto the destination, refusing anything that
// would land outside root.
func (s *syncer) resolve(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return "", fail("resolve", errors.Newf("path %q is not relative", p))
	}
	dest := filepath.Join(s.root, filepath.FromSlash(p))
	rel, err := filepath.Rel(s.root, dest)
	if err != nil {
		return "", fail("resolve", err)
	}
	if escapes(rel) {
		return "", fail("resolve", errors.Newf("path %q escapes the destination", p))
	}

	// symlinks already in the destination must not redirect writes
	realRoot, err := realPath(s.root)
	if err != nil {
		return "", fail("resolve", err)
	}
	realDest, err := realPath(dest)
	if err != nil {
		return "", fail("resolve", err)
	}
	if rel, err = filepath.Rel(realRoot, realDest); err != nil || escapes(rel) {
		return "", fail("resolve", errors.Newf("path %q resolves to %s, outside the destination", p, realDest))
	}
	return dest, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath resolves symlinks in the deepest existing ancestor of p and
// appends the components that do not exist yet. A dangling symlink is an error.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	cur, rest := abs, ""
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", errors.Newf("%s is a dangling symlink", cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func (s *syncer) apply(req artifact.Request) (Result, error) {
	res := Result{Path: req.Path, Category: req.Category, Kind: req.Kind.String()}
	dest, err := s.resolve(req.Path)
	if err != nil {
		return res, err
	}
	if req.Kind == artifact.KindDirectory {
		res.Outcome, err = s.directory(dest)
		return res, err
	}

	content := []byte(req.Content)
	res.Digest = artifact.Digest(content)
	res.Size = len(content)

	existing, err := os.ReadFile(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Outcome = artifact.Created
		return res, s.create(dest, content, req.Executable)
	case err != nil:
		return res, fail("read", err)
	}

	if bytes.Equal(existing, content) {
		res.Outcome = artifact.SkippedIdentical
		return res, nil
	}
	if req.Policy == artifact.PolicySeed {
		res.Outcome = artifact.SkippedNoop
		return res, nil
	}

	res.Outcome = artifact.Updated
	res.OverwroteEdit = s.editedSinceLastRun(req.Path, existing)
	if s.dryRun {
		return res, nil
	}
	if err := os.WriteFile(dest, content, perm(req.Executable)); err != nil {
		return res, fail("write", err)
	}
	if req.Executable {
		if err := os.Chmod(dest, executablePerm); err != nil {
			return res, fail("chmod", err)
		}
	}
	return res, nil
}

func (s *syncer) directory(dest string) (artifact.Outcome, error) {
	info, err := os.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		return artifact.SkippedNoop, nil
	case err == nil:
		return "", fail("create directory", errors.Newf("%s exists and is not a directory", dest))
	case !errors.Is(err, fs.ErrNotExist):
		return "", fail("stat", err)
	}
	if s.dryRun {
		return artifact.Created, nil
	}
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		return "", fail("create directory", err)
	}
	return artifact.Created, nil
}

func (s *syncer) create(dest string, content []byte, executable bool) error {
	if s.dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fail("create directory", err)
	}
	if err := os.WriteFile(dest, content, perm(executable)); err != nil {
		return fail("write", err)
	}
	return nil
}

// editedSinceLastRun compares the file on disk with the digest forge recorded
// for it. Guard failures are logged and treated as "unknown".
func (s *syncer) editedSinceLastRun(path string, existing []byte) bool {
	if s.guard == nil {
		return false
	}
	last, ok, err := s.guard.LastDigest(s.root, path)
	if err != nil {
		s.logger.Warnw("Could not read ledger digest", logger.FieldPath, path, logger.FieldError, err)
		return false
	}
	if !ok || last == artifact.Digest(existing) {
		return false
	}
	s.logger.Warnw("Overwriting hand-edited file",
		logger.FieldPath, path,
		logger.FieldDigest, last,
	)
	return true
}

func perm(executable bool) fs.FileMode {
	if executable {
		return executablePerm
	}
	return filePerm
}
