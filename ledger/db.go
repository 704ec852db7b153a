package ledger

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/forge/errors"
)

// SQLiteBusyTimeoutMS is how long a writer waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

//go:embed migrations/*.sql
var migrations embed.FS

// OpenDB opens a SQLite database with WAL, foreign keys and a busy timeout.
// logger may be nil.
func OpenDB(dbPath string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening ledger database", "path", dbPath)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = " + strconv.Itoa(SQLiteBusyTimeoutMS),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", p)
		}
	}
	return db, nil
}

// OpenDBWithMigrations opens the database and applies pending migrations.
func OpenDBWithMigrations(dbPath string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := OpenDB(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to migrate %s", dbPath)
	}
	return db, nil
}

// Migrate applies embedded migrations in file-name order. Each migration and
// its schema_migrations row commit in one transaction.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, name := range files {
		version := migrationVersion(name)

		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			// only the first migration may run before schema_migrations exists
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations missing before %s", name)
			}
		} else if exists {
			continue
		}

		body, err := migrations.ReadFile(path.Join("migrations", name))
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if logger != nil {
			logger.Infow("Applying ledger migration", "migration", name)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", name)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", name)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", name)
		}
		applied++
	}

	if logger != nil && applied > 0 {
		logger.Infow("Ledger migrations complete", "applied", applied, "total", len(files))
	}
	return nil
}

// SchemaVersion is the version of the newest embedded migration, the schema a
// freshly migrated ledger has.
func SchemaVersion() string {
	files, err := migrationFiles()
	if err != nil || len(files) == 0 {
		return "none"
	}
	return migrationVersion(files[len(files)-1])
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func migrationVersion(name string) string {
	return strings.SplitN(name, "_", 2)[0]
}

// ErrDatabaseClosed is returned when the ledger is used after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed matches ErrDatabaseClosed and the driver's own message,
// which database/sql returns unwrapped.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
