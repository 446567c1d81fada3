// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// SQLite is embedded — the database is a single file (or ":memory:"), no
// server process to manage. modernc.org/sqlite is a pure Go translation of
// the SQLite C sources, so no CGo and no C toolchain is required.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Blank import: the driver registers itself with database/sql under the
	// name "sqlite" in its init function.
	_ "modernc.org/sqlite"
)

// Connection retry bounds. A database that is not reachable at boot gets a
// few chances before the process gives up; this mirrors the reconnect
// behaviour of the service this replaces (5 tries, 2.5s apart).
const (
	connectAttempts   = 5
	connectRetryDelay = 2500 * time.Millisecond
)

// DB wraps a sql.DB connection pool and implements repository.UserRepository.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens the SQLite database at path, retrying a bounded number of times,
// then applies pragmas and runs migrations.
//
// path may be ":memory:" (used by the tests) or a file path.
func New(path string, logger *slog.Logger) (*DB, error) {
	var conn *sql.DB
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err = open(path)
		if err == nil {
			break
		}
		logger.Warn("database connection failed",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", connectAttempts),
			slog.String("error", err.Error()),
		)
		if attempt < connectAttempts {
			time.Sleep(connectRetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: connecting after %d attempts: %w", connectAttempts, err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// open creates the pool, verifies it with a ping, and applies pragmas.
func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Pragmas are per-connection in SQLite; cap the pool at one connection
	// so they stick. For this workload (single-file DB, WAL reads) one
	// connection is not a bottleneck.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; the oauth_providers table
	// references users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return conn, nil
}

// Close closes the connection pool. Defer this wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// email carries COLLATE NOCASE so both the UNIQUE index and equality lookups
// are case-insensitive at the database level; the service additionally
// lowercases emails before every write.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL COLLATE NOCASE UNIQUE,
			password      TEXT NOT NULL,
			profile_photo TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// provider_id is the provider's identifier for the account and is the
	// primary key: one row per linked provider account, ever.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS oauth_providers (
			provider_id   TEXT PRIMARY KEY,
			provider_type TEXT NOT NULL,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_oauth_providers_user_id ON oauth_providers(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating oauth_providers table: %w", err)
	}

	return nil
}
