package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"conference/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTimedDB_RecordsEachCallByTable(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil || val != "hello" {
		t.Fatalf("QueryRowContext = %q, %v", val, err)
	}

	if collector.TotalRecorded() != 3 {
		t.Fatalf("TotalRecorded = %d, want 3", collector.TotalRecorded())
	}
	snap := collector.Snapshot(timeZero(), 10)
	paths := map[string]int{}
	for _, s := range snap.SlowestQueries {
		paths[s.Path] = s.Count
	}
	if paths["INSERT test"] != 1 || paths["SELECT test"] != 2 {
		t.Errorf("query labels = %v", paths)
	}
}

func TestTimedDB_ErrorsPassThroughAndAreTimed(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL")
	}
	var v string
	if err := tdb.QueryRowContext(context.Background(), "SELECT val FROM test WHERE id = ?", "none").Scan(&v); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

func TestTimedDB_CancelledContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

func TestTimedDB_NilCollectorAndRawDB(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil)
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x"); err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
	if tdb.RawDB() != db {
		t.Error("RawDB() should return the wrapped *sql.DB")
	}
}

func TestQueryLabel(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT id FROM registration WHERE id = ?", "SELECT registration"},
		{"select count(*) from pcc_registration where course_code = ?", "SELECT pcc_registration"},
		{"INSERT INTO outbox (id, payload) VALUES (?, ?)", "INSERT outbox"},
		{"INSERT INTO pcc_registration(id) SELECT ?", "INSERT pcc_registration"},
		{"UPDATE accommodation SET title = ?", "UPDATE accommodation"},
		{"DELETE FROM registration WHERE id = ?", "DELETE registration"},
		{"PRAGMA journal_mode=WAL", "PRAGMA"},
		{"   ", "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := QueryLabel(tt.query); got != tt.want {
			t.Errorf("QueryLabel(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func BenchmarkTimedDB_QueryRow(b *testing.B) {
	db, _ := sql.Open("sqlite", ":memory:")
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, val TEXT)")
	db.Exec("INSERT INTO bench VALUES (1, 'x')")
	tdb := NewTimedDB(db, perf.NewCollector(perf.DefaultRingSize))
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var v string
		tdb.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1").Scan(&v)
	}
}
