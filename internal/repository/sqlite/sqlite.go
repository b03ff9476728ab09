// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no C compiler, no CGo, and the same
// binary works everywhere Go works. database/sql sits on top of it, so the
// rest of the package only ever sees *sql.DB, *sql.Row and *sql.Rows.
//
// LIFECYCLE POLICIES:
// The relational rules of the blog live in the schema itself, not in Go code:
//
//	posts.author_id     → users(id)        ON DELETE CASCADE
//	posts.group_id      → blog_groups(id)  ON DELETE SET NULL
//	comments.post_id    → posts(id)        ON DELETE CASCADE
//	comments.author_id  → users(id)        ON DELETE CASCADE
//	follows.user_id     → users(id)        ON DELETE CASCADE
//	follows.author_id   → users(id)        ON DELETE CASCADE
//
// follows has PRIMARY KEY (user_id, author_id) and CHECK (user_id <> author_id),
// so two concurrent follow requests can never produce a duplicate edge: the
// second INSERT fails with a primary key error, which we surface as
// apperror.ErrConflict. A foreign key failure is never a conflict: it means
// a referenced row is gone and is reported as apperror.ErrNotFound.
//
// TIMESTAMPS:
// Times are stored as INTEGER Unix nanoseconds (UTC). Integers sort exactly,
// which the "created_at DESC, id DESC" ordering of every listing relies on.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/yatube.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
//
// SINGLE CONNECTION:
// PRAGMAs such as foreign_keys are per-connection, and every connection to
// ":memory:" opens its own empty database. Capping the pool at one
// connection keeps the schema, the data and the pragmas in one place.
// Callers must therefore never run a query while *sql.Rows is still open.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	// In-memory databases ignore it and report "memory".
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Every cascade rule above
	// depends on them.
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

// dsn appends the connection pragmas understood by modernc.org/sqlite so
// they also apply if the pool ever has to reopen its connection.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent
// (IF NOT EXISTS), so it is safe to run on every start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				github_id  INTEGER NOT NULL UNIQUE,
				username   TEXT NOT NULL UNIQUE,
				email      TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);`},
		{"blog_groups", `
			CREATE TABLE IF NOT EXISTS blog_groups (
				id          TEXT PRIMARY KEY,
				title       TEXT NOT NULL CHECK (length(title) <= 200),
				slug        TEXT NOT NULL UNIQUE CHECK (length(slug) <= 50),
				description TEXT NOT NULL DEFAULT ''
			);`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id         TEXT PRIMARY KEY,
				text       TEXT NOT NULL CHECK (text <> ''),
				created_at INTEGER NOT NULL,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				group_id   TEXT REFERENCES blog_groups(id) ON DELETE SET NULL,
				image_ref  TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC, id DESC);
			CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
			CREATE INDEX IF NOT EXISTS idx_posts_group ON posts(group_id);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id         TEXT PRIMARY KEY,
				post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				text       TEXT NOT NULL CHECK (text <> ''),
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, created_at DESC);`},
		{"follows", `
			CREATE TABLE IF NOT EXISTS follows (
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at INTEGER NOT NULL,
				PRIMARY KEY (user_id, author_id),
				CHECK (user_id <> author_id)
			);
			CREATE INDEX IF NOT EXISTS idx_follows_author ON follows(author_id);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// constraintCode returns the extended result code of a SQLite constraint
// failure, or 0 when err is not one. The driver always enables extended
// result codes; the primary code sits in the low byte.
func constraintCode(err error) int {
	var sqErr *moderncsqlite.Error
	if !errors.As(err, &sqErr) {
		return 0
	}
	if sqErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0
	}
	return sqErr.Code()
}

// isUniqueViolation reports a duplicate PRIMARY KEY or UNIQUE value.
func isUniqueViolation(err error) bool {
	switch constraintCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// stamp returns t, or the current time when t is zero.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
