// Package ledger records render runs and the digest of every file forge
// wrote, so later runs can tell when an overwrite is about to discard a hand
// edit. The ledger is advisory: synchronization decisions never depend on it.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

// Run is one recorded render pass.
type Run struct {
	ID         string        `json:"id"`
	Root       string        `json:"root"`
	App        string        `json:"app"`
	Mode       artifact.Mode `json:"mode"`
	SpecDigest string        `json:"spec_digest"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// FileRecord is the content digest forge left at one path.
type FileRecord struct {
	Path    string
	Digest  string
	Outcome artifact.Outcome
}

// Ledger is a run history backed by SQLite.
type Ledger struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// New wraps an already migrated database.
func New(db *sql.DB, l *zap.SugaredLogger) *Ledger {
	if l == nil {
		l = logger.ComponentLogger("ledger")
	}
	return &Ledger{db: db, logger: l, now: time.Now}
}

// Open opens (creating if needed) and migrates the ledger at path.
func Open(path string, l *zap.SugaredLogger) (*Ledger, error) {
	if l == nil {
		l = logger.ComponentLogger("ledger")
	}
	db, err := OpenDBWithMigrations(path, l)
	if err != nil {
		return nil, errors.WithHint(err, "disable the ledger with ledger.enabled = false or point ledger.path elsewhere")
	}
	return New(db, l), nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun stores run and its file digests in one transaction. A new run ID
// is assigned and returned in the stored Run.
func (l *Ledger) RecordRun(ctx context.Context, run Run, files []FileRecord) (Run, error) {
	run.ID = uuid.NewString()
	if run.FinishedAt.IsZero() {
		run.FinishedAt = l.now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	run.StartedAt, run.FinishedAt = run.StartedAt.UTC(), run.FinishedAt.UTC()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to begin ledger transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, app, mode, spec_digest, created, updated, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.App, string(run.Mode), run.SpecDigest,
		run.Created, run.Updated, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to record run")
	}

	for _, f := range files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (root, path, digest, outcome, run_id, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (root, path) DO UPDATE SET
				digest = excluded.digest,
				outcome = excluded.outcome,
				run_id = excluded.run_id,
				recorded_at = excluded.recorded_at`,
			run.Root, f.Path, f.Digest, string(f.Outcome), run.ID, run.FinishedAt,
		)
		if err != nil {
			return Run{}, errors.Wrapf(err, "failed to record digest for %s", f.Path)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "failed to commit ledger transaction")
	}
	l.logger.Infow("Recorded run",
		logger.FieldRunID, run.ID,
		logger.FieldRoot, run.Root,
		logger.FieldCount, len(files),
	)
	return run, nil
}

// LastDigest returns the digest forge last recorded for path under root.
func (l *Ledger) LastDigest(root, path string) (string, bool, error) {
	var digest string
	err := l.db.QueryRow("SELECT digest FROM files WHERE root = ? AND path = ?", root, path).Scan(&digest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, errors.Wrapf(err, "failed to look up digest for %s", path)
	}
	return digest, true, nil
}

// History lists the most recent runs, newest first. An empty root lists runs
// for every destination.
func (l *Ledger) History(ctx context.Context, root string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, root, app, mode, spec_digest, created, updated, skipped, started_at, finished_at
		FROM runs
		WHERE (? = '' OR root = ?)
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`,
		root, root, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run history")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var mode string
		if err := rows.Scan(&r.ID, &r.Root, &r.App, &mode, &r.SpecDigest,
			&r.Created, &r.Updated, &r.Skipped, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		r.Mode = artifact.Mode(mode)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read run history")
	}
	return runs, nil
}

// Forget removes every record for root, for destinations that were deleted.
// It returns the number of runs removed.
func (l *Ledger) Forget(ctx context.Context, root string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin ledger transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE root = ?", root); err != nil {
		return 0, errors.Wrapf(err, "failed to forget files under %s", root)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE root = ?", root)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to forget runs for %s", root)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit ledger transaction")
	}
	return res.RowsAffected()
}
