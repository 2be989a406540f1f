// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite — a pure Go translation of the SQLite
// sources, so there is no CGo and no C toolchain requirement. database/sql
// gives us a connection pool: every query checks a connection out and
// returns it when done, so concurrent requests never share cursor state.
//
// The schema keeps the column names the map frontend already speaks
// (feed_introduction, latitude, longitude) so existing clients keep
// working against the rewritten backend.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and implements repository.UserRepository,
// repository.FeedRepository and repository.SessionRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests), applies the
// pragmas the server depends on, and runs migrations.
//
// Pragmas ride in the DSN because they are per-connection state:
// database/sql opens connections lazily, and an Exec'd PRAGMA would only
// reach whichever connection happened to run it. WAL lets reads proceed
// while a write is in flight. Foreign keys are off by default in SQLite
// and must be on: feed ownership and the account-deletion cascade both
// ride on the feeds.user_id constraint.
func New(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; a second pooled
	// connection would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Surface a bad path or permission problem now rather than on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user store backed by this pool.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Feeds returns the feed store backed by this pool.
func (db *DB) Feeds() *FeedStore { return &FeedStore{conn: db.conn} }

// Sessions returns the session store backed by this pool.
func (db *DB) Sessions() *SessionStore { return &SessionStore{conn: db.conn} }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent; column additions go through addColumnIfNotExists so the
// server can be restarted against an older database file.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id               TEXT PRIMARY KEY,
			external_id      TEXT NOT NULL UNIQUE,
			password_hash    TEXT NOT NULL DEFAULT '',
			nickname         TEXT NOT NULL DEFAULT '',
			profile_image    TEXT NOT NULL DEFAULT '',
			intro_text       TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// background_image arrived after the first schema shipped; ALTER
	// keeps existing database files working.
	if err := db.addColumnIfNotExists("users", "background_image", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding users.background_image: %w", err)
	}

	// ON DELETE CASCADE: deleting an account removes its feeds in the
	// same statement. The original kept users and feeds in separate
	// schemas and orphaned the feeds; one file, one constraint.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS feeds (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			latitude     REAL NOT NULL,
			longitude    REAL NOT NULL,
			introduction TEXT NOT NULL DEFAULT '',
			image_folder TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_feeds_coords ON feeds(latitude, longitude);
		CREATE INDEX IF NOT EXISTS idx_feeds_user_id ON feeds(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating feeds table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column only when it is missing, so ALTER
// TABLE migrations can be re-run safely.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
