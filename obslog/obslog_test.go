package obslog

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestLogAndRecent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	l := NewLogger(db)

	l.Log(ctx, Event{Kind: KindCapture, Platform: "claude", ConversationID: "xyz789", Success: true})
	l.Log(ctx, Event{Kind: KindRelayError, Platform: "claude", ConversationID: "xyz789", Success: false})

	rows, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	for _, r := range rows {
		if r.EventID == "" {
			t.Error("empty event ID")
		}
		if r.Platform != "claude" || r.ConversationID != "xyz789" {
			t.Errorf("row = %+v", r)
		}
	}
}

func TestLogNeverPropagatesFailure(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	// No Migrate: the insert will fail. Log must swallow it.
	l := NewLogger(db)
	l.Log(context.Background(), Event{Kind: KindCapture})
}

func TestCleanup(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	l := NewLogger(db)
	l.Log(ctx, Event{Kind: KindCapture, Success: true})

	// Backdate the row beyond the retention window.
	if _, err := db.Exec(`UPDATE capture_events SET created_at = created_at - 90*86400`); err != nil {
		t.Fatal(err)
	}
	if err := Cleanup(ctx, db, 30); err != nil {
		t.Fatal(err)
	}

	rows, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d after cleanup", len(rows))
	}
}
