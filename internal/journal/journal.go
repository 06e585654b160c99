// Package journal records toolkit command runs in a local SQLite database.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	command     TEXT NOT NULL,
	args        TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	exit_code   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Entry is one recorded command run.
type Entry struct {
	ID        int64
	Command   string
	Args      []string
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
}

// Recorder is the journal interface commands depend on. A nil-safe no-op
// implementation backs the disabled state.
type Recorder interface {
	Record(e Entry) error
	Recent(limit int) ([]Entry, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record inserts one run entry.
func (db *DB) Record(e Entry) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (command, args, started_at, duration_ms, exit_code)
		VALUES (?, ?, ?, ?, ?)
	`, e.Command, strings.Join(e.Args, " "), e.StartedAt.UTC(), e.Duration.Milliseconds(), e.ExitCode)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, command, args, started_at, duration_ms, exit_code
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			args  string
			durMS int64
		)
		if err := rows.Scan(&e.ID, &e.Command, &args, &e.StartedAt, &durMS, &e.ExitCode); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		if args != "" {
			e.Args = strings.Split(args, " ")
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

// Noop is a Recorder that drops everything; used when journaling is
// disabled or the journal database cannot be opened.
type Noop struct{}

func (Noop) Record(Entry) error          { return nil }
func (Noop) Recent(int) ([]Entry, error) { return nil, nil }
func (Noop) Close() error                { return nil }
