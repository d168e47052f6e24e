// Package store provides SQLite-backed persistence for events, the audit
// log, and part requests.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Bounds applied by the listing queries.
const (
	EventListCap = 20
	AuditListCap = 50
)

// timeLayout is fixed-width so the text ordering of stored timestamps
// matches chronological ordering. RFC3339Nano trims trailing zeros from
// the fractional second, which breaks lexicographic comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps an SQLite connection for cranewatch persistence.
type DB struct {
	db *sqlx.DB
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id               TEXT PRIMARY KEY,
			timestamp        TEXT NOT NULL,
			component_id     TEXT NOT NULL,
			type             TEXT NOT NULL,
			severity         REAL NOT NULL,
			urgency_score    INTEGER NOT NULL,
			raw_telemetry    TEXT NOT NULL,
			prescription     TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'active',
			resolution_notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status_ts ON events(status, timestamp)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			role      TEXT NOT NULL,
			action    TEXT NOT NULL,
			event_id  TEXT,
			details   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_role_ts ON audit_log(role, timestamp)`,
		`CREATE TABLE IF NOT EXISTS part_requests (
			id             TEXT PRIMARY KEY,
			part_name      TEXT NOT NULL,
			requester_role TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			timestamp      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_part_requests_status_ts ON part_requests(status, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	if err := addOwnerDecisionColumn(db); err != nil {
		return err
	}

	slog.Debug("database schema up to date")
	return nil
}

// addOwnerDecisionColumn upgrades events tables created before owner
// decisions were recorded. Existing rows keep a NULL decision.
func addOwnerDecisionColumn(db *sqlx.DB) error {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM pragma_table_info('events') WHERE name = 'owner_decision'`)
	if err != nil {
		return fmt.Errorf("inspecting events schema: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(`ALTER TABLE events ADD COLUMN owner_decision TEXT`); err != nil {
		return fmt.Errorf("adding owner_decision column: %w", err)
	}
	slog.Info("migrated events table", "added_column", "owner_decision")
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
