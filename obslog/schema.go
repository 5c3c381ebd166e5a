package obslog

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS capture_events (
	event_id        TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	platform        TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	detail          TEXT NOT NULL DEFAULT '',
	success         INTEGER NOT NULL DEFAULT 1,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_capture_events_created
	ON capture_events (created_at);
`

// Open opens the observability database with production-safe pragmas
// applied via EXEC (driver-agnostic). Register a driver first:
//
//	import _ "modernc.org/sqlite"
//	db, err := obslog.Open("capd.db")
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("obslog: open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("obslog: %s: %w", p, err)
		}
	}
	return db, nil
}

// Migrate creates the schema if missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("obslog: migrate: %w", err)
	}
	return nil
}
