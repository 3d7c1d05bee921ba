// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	// IMPORT ALIAS:
	// Importing the driver package normally (not as a blank `_` import) still
	// triggers its init(), which registers itself with database/sql as a driver
	// named "sqlite". We also need the package directly to register a custom
	// SQL function below.
	sqlitedriver "modernc.org/sqlite"
)

// init registers ulower, a Unicode-aware lower-casing function.
//
// SQLite's built-in lower() only folds ASCII — lower('ÜBER') stays 'ÜBER'.
// Search must be case-insensitive for non-ASCII titles too, so the search
// query lowercases with ulower() (Go's strings.ToLower) instead.
func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction("ulower", 1,
		func(ctx *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case nil:
				return nil, nil
			default:
				return v, nil
			}
		})
}

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements both repository.BugRepository and repository.UserRepository;
// the server hands the same *DB to both services under their respective
// interfaces.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/bugtracker.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (great for tests, lost on close)
//
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call Ping() to force an immediate connection and surface a bad
// path or permissions problem here instead of on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode allows concurrent reads WHILE a write is happening.
	// This is critical for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// They must be ON: the users→bug_reports cascade is what guarantees that
	// deleting a user leaves no orphaned bug report behind.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. The server defers this during
// graceful shutdown so the WAL is flushed and the file lock released.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every start.
// A migration library (golang-migrate etc.) isn't used here because its
// sqlite drivers bind to the CGo driver; the embedded statements below are
// the whole schema anyway.
//
// Tags are stored as a JSON array in a TEXT column. SQLite's json_each lets
// the list query do exact membership tests against it without a join table.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// ON DELETE CASCADE: removing a user removes every bug report they own.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS bug_reports (
			id                 TEXT PRIMARY KEY,
			title              TEXT NOT NULL,
			description        TEXT NOT NULL,
			steps_to_reproduce TEXT NOT NULL DEFAULT '',
			expected_result    TEXT NOT NULL DEFAULT '',
			actual_result      TEXT NOT NULL DEFAULT '',
			environment        TEXT NOT NULL DEFAULT '',
			severity           TEXT NOT NULL DEFAULT 'medium',
			status             TEXT NOT NULL DEFAULT 'open',
			tags               TEXT NOT NULL DEFAULT '[]',
			created_by         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_bug_reports_created_by ON bug_reports(created_by);
		CREATE INDEX IF NOT EXISTS idx_bug_reports_created_at ON bug_reports(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating bug_reports table: %w", err)
	}

	return nil
}
