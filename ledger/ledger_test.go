package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/forge/artifact"
	"github.com/teranos/forge/errors"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordRunAndLastDigest(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	run, err := l.RecordRun(ctx, Run{Root: "/tmp/todo", App: "todo", Mode: artifact.ModeNew, SpecDigest: "abc", Created: 2}, []FileRecord{
		{Path: "package.json", Digest: "d1", Outcome: artifact.Created},
		{Path: "README.md", Digest: "d2", Outcome: artifact.Created},
	})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36, "run IDs are UUIDs")
	assert.False(t, run.FinishedAt.IsZero())

	digest, ok, err := l.LastDigest("/tmp/todo", "package.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "d1", digest)

	_, ok, err = l.LastDigest("/tmp/other", "package.json")
	require.NoError(t, err)
	assert.False(t, ok, "digests are scoped to their destination")

	// a later run replaces the digest
	_, err = l.RecordRun(ctx, Run{Root: "/tmp/todo", App: "todo", Mode: artifact.ModeIncremental, SpecDigest: "abc", Updated: 1},
		[]FileRecord{{Path: "package.json", Digest: "d3", Outcome: artifact.Updated}})
	require.NoError(t, err)
	digest, _, err = l.LastDigest("/tmp/todo", "package.json")
	require.NoError(t, err)
	assert.Equal(t, "d3", digest)
}

func TestHistory(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, root := range []string{"/a", "/b", "/a"} {
		_, err := l.RecordRun(ctx, Run{
			Root: root, App: "app", Mode: artifact.ModeIncremental, SpecDigest: "s",
			StartedAt: base.Add(time.Duration(i) * time.Minute), FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}, nil)
		require.NoError(t, err)
	}

	all, err := l.History(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, base.Add(2*time.Minute), all[0].StartedAt.UTC(), "newest first")

	onlyA, err := l.History(ctx, "/a", 10)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
	assert.Equal(t, artifact.ModeIncremental, onlyA[0].Mode)

	limited, err := l.History(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestForget(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	_, err := l.RecordRun(ctx, Run{Root: "/gone", App: "x", Mode: artifact.ModeNew}, []FileRecord{{Path: "a", Digest: "d", Outcome: artifact.Created}})
	require.NoError(t, err)

	n, err := l.Forget(ctx, "/gone")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok, err := l.LastDigest("/gone", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := OpenDBWithMigrations(path, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, nil))

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 3, versions)

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)
	require.NoError(t, db.Close())
}

func TestIsDatabaseClosed(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Close())

	_, _, err := l.LastDigest("/x", "y")
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "shutdown")))
	assert.False(t, IsDatabaseClosed(nil))
	assert.False(t, IsDatabaseClosed(errors.New("disk full")))
}

// --- sqlmock: error paths ---

func TestRecordRunRollsBackOnFileFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	l := New(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO files`).
		WithArgs("/r", "a.ts", "d", "created", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = l.RecordRun(context.Background(), Run{Root: "/r", App: "x", Mode: artifact.ModeNew},
		[]FileRecord{{Path: "a.ts", Digest: "d", Outcome: artifact.Created}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.ts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
	_, err = New(db, zap.NewNop().Sugar()).RecordRun(context.Background(), Run{Root: "/r"}, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastDigestQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT digest FROM files`).WithArgs("/r", "a").WillReturnError(errors.New("boom"))
	_, ok, err := New(db, zap.NewNop().Sugar()).LastDigest("/r", "a")
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryScanFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("only-one-column")
	mock.ExpectQuery(`SELECT id, root`).WillReturnRows(rows)
	_, err = New(db, zap.NewNop().Sugar()).History(context.Background(), "", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan")
}
