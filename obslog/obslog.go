// Package obslog records pipeline events (captures, relay outcomes,
// control toggles) in a local SQLite database. It is observability, not
// persistence of captured content: a failing event store logs via slog
// and never blocks or fails the pipeline.
package obslog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimcortex/capture/idgen"
)

// Event kinds recorded by the pipeline.
const (
	KindCapture    = "capture_emitted"
	KindRelayOK    = "relay_ok"
	KindRelayError = "relay_error"
	KindToggle     = "capture_toggle"
)

// Event is one pipeline occurrence worth recording.
type Event struct {
	Kind           string
	Platform       string
	ConversationID string
	Detail         string // optional JSON
	Success        bool
}

// Row is a stored event, as read back by Recent.
type Row struct {
	EventID        string
	Kind           string
	Platform       string
	ConversationID string
	Detail         string
	Success        bool
	CreatedAt      int64
}

// Logger writes events to the observability database.
type Logger struct {
	db    *sql.DB
	newID idgen.Generator
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) LoggerOption {
	return func(l *Logger) { l.newID = gen }
}

// NewLogger creates a Logger backed by the given database.
func NewLogger(db *sql.DB, opts ...LoggerOption) *Logger {
	l := &Logger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Log records an event. Errors are logged via slog but do not propagate:
// observability never blocks the capture path.
func (l *Logger) Log(ctx context.Context, event Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO capture_events (
			event_id, kind, platform, conversation_id, detail, success, created_at
		) VALUES (?,?,?,?,?,?,?)`,
		l.newID(), event.Kind, event.Platform, event.ConversationID,
		event.Detail, event.Success, time.Now().Unix())
	if err != nil {
		slog.Error("obslog: event write failed", "kind", event.Kind, "error", err)
	}
}

// Recent returns the newest events, most recent first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Row, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_id, kind, platform, conversation_id, detail, success, created_at
		FROM capture_events ORDER BY created_at DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("obslog: query events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.EventID, &r.Kind, &r.Platform, &r.ConversationID,
			&r.Detail, &r.Success, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("obslog: scan event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the retention window. Zero days
// means no cleanup.
func Cleanup(ctx context.Context, db *sql.DB, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(retentionDays*86400)
	if _, err := db.ExecContext(ctx, `DELETE FROM capture_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("obslog: cleanup: %w", err)
	}
	return nil
}
