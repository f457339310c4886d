package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// migrations are applied in order; the index+1 is the schema version.
// Append only: never edit a migration that has shipped.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS registration (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		event_type TEXT NOT NULL,
		accompanying TEXT NOT NULL DEFAULT 'No',
		number_of_accompanying INTEGER NOT NULL DEFAULT 0,
		accompanying_persons TEXT NOT NULL DEFAULT '[]',
		amount_paid REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		payment_id TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		payment_mode TEXT NOT NULL,
		coupon_code TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_registration_created_at ON registration(created_at);
	CREATE INDEX IF NOT EXISTS idx_registration_email ON registration(email);

	CREATE TABLE IF NOT EXISTS accommodation (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		delegate_type TEXT NOT NULL,
		room_type TEXT NOT NULL,
		twin_sharing_delegate_name TEXT NOT NULL DEFAULT '',
		check_in_date TEXT NOT NULL,
		check_out_date TEXT NOT NULL,
		amount_paid REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		payment_id TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		payment_mode TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_accommodation_created_at ON accommodation(created_at);

	CREATE TABLE IF NOT EXISTS pcc_registration (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT NOT NULL,
		course_code TEXT NOT NULL,
		course_name TEXT NOT NULL DEFAULT '',
		course_date TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_pcc_registration_course_code ON pcc_registration(course_code);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		record_kind TEXT NOT NULL DEFAULT '',
		record_id TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		next_attempt_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, next_attempt_at);
	`,
	`
	CREATE TABLE IF NOT EXISTS order_intent (
		order_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		receipt TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		record_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_order_intent_status ON order_intent(status, created_at);
	`,
}

// LatestSchemaVersion is the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return len(migrations)
}

// OpenSQLite opens the database at path with WAL mode, a busy timeout and foreign keys,
// and migrates it to the latest schema.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged, migrated connection pool
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := MigrateDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateDB applies every migration newer than the recorded schema version.
// PRE: db is a valid database connection
// POST: schema_version holds LatestSchemaVersion()
func MigrateDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
			tx.Rollback()
			return fmt.Errorf("reset schema_version: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("record schema_version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the recorded schema version, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return v, nil
}
