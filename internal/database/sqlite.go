// Package database opens the SQLite database shared by every store and keeps
// its schema current.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Pragmas are applied to every pooled connection through the DSN, since
// foreign_keys and busy_timeout are per-connection settings in SQLite.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func migrate(db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT    NOT NULL,
		token      TEXT    NOT NULL UNIQUE,
		created_at TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		mac_address    TEXT    NOT NULL UNIQUE,
		device_name    TEXT,
		owner_id       INTEGER REFERENCES users(id) ON DELETE SET NULL,
		is_online      INTEGER NOT NULL DEFAULT 0,
		last_online_at TEXT,
		created_at     TEXT    NOT NULL,
		updated_at     TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_devices (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		device_id   INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		device_name TEXT,
		is_primary  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT    NOT NULL,
		UNIQUE (user_id, device_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id           INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		remote_id           TEXT,
		content             TEXT    NOT NULL,
		reminder_type       TEXT    NOT NULL DEFAULT 'once',
		scheduled_timestamp INTEGER,
		scheduled_time      TEXT    NOT NULL,
		skip_holidays       INTEGER NOT NULL DEFAULT 0,
		status              TEXT    NOT NULL DEFAULT 'active',
		completed_at        TEXT,
		notes               TEXT,
		created_at          TEXT    NOT NULL,
		updated_at          TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_device_status ON reminders (device_id, status)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id        INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		user_text        TEXT    NOT NULL,
		ai_text          TEXT    NOT NULL,
		server_timestamp INTEGER NOT NULL,
		created_at       TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_device_ts ON chat_messages (device_id, server_timestamp)`,
	`CREATE TABLE IF NOT EXISTS ai_reports (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id         INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		report_date       TEXT    NOT NULL,
		html_content      TEXT    NOT NULL,
		chat_count        INTEGER NOT NULL DEFAULT 0,
		generation_status TEXT    NOT NULL DEFAULT 'success',
		created_at        TEXT    NOT NULL,
		updated_at        TEXT    NOT NULL,
		UNIQUE (device_id, report_date)
	)`,
}

// FormatTime renders t the way every TEXT timestamp column stores it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime is the inverse of FormatTime. Empty or malformed values yield the
// zero time.
func ParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NullTime converts a nullable TEXT timestamp column.
func NullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := ParseTime(ns.String)
	return &t
}
