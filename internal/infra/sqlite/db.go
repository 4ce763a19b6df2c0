// Package sqlite provides durable storage for users, study plans,
// reward rules, and the activity wallet ledger.
//
// The grant ledger is append-only: reward_logs rows are only ever
// inserted, and UNIQUE(child_id, rule_id, granted_date) is the
// idempotency key that makes concurrent reward evaluations safe.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and implements the storage interfaces
// consumed by the reward engine and the API layer.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database file inside dir and applies the
// schema migrations. WAL mode keeps readers from blocking the single writer.
func Open(dir string) (*DB, error) {
	dsn := filepath.Join(dir, "studytime.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			role       TEXT NOT NULL,
			pin_hash   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS study_plans (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id   INTEGER NOT NULL REFERENCES users(id),
			plan_date  TEXT NOT NULL,
			title      TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_child_date ON study_plans(child_id, plan_date)`,

		`CREATE TABLE IF NOT EXISTS study_tasks (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_id           INTEGER NOT NULL REFERENCES study_plans(id) ON DELETE CASCADE,
			subject           TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			estimated_minutes INTEGER NOT NULL DEFAULT 30,
			actual_minutes    INTEGER NOT NULL DEFAULT 0,
			is_homework       INTEGER NOT NULL DEFAULT 0,
			status            TEXT NOT NULL DEFAULT 'pending',
			started_at        TEXT,
			completed_at      TEXT,
			approved_at       TEXT,
			approved_by       INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_plan ON study_tasks(plan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON study_tasks(status)`,

		`CREATE TABLE IF NOT EXISTS reward_rules (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			trigger_type      TEXT NOT NULL,
			trigger_condition TEXT NOT NULL DEFAULT '',
			reward_minutes    INTEGER NOT NULL DEFAULT 0,
			description       TEXT NOT NULL,
			is_active         INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activity_wallets (
			child_id            INTEGER PRIMARY KEY REFERENCES users(id),
			balance_minutes     INTEGER NOT NULL DEFAULT 0,
			daily_limit_minutes INTEGER NOT NULL DEFAULT 120,
			carry_over          INTEGER NOT NULL DEFAULT 0,
			updated_at          TEXT NOT NULL
		)`,

		// Append-only grant ledger. The UNIQUE index is the grant guard's
		// last line of defense against concurrent double-grants.
		`CREATE TABLE IF NOT EXISTS reward_logs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id        INTEGER NOT NULL REFERENCES users(id),
			rule_id         INTEGER NOT NULL REFERENCES reward_rules(id),
			granted_minutes INTEGER NOT NULL,
			granted_date    TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			UNIQUE(child_id, rule_id, granted_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_logs_child_date ON reward_logs(child_id, granted_date)`,

		// Append-only consumption ledger. Negative consumed_minutes
		// represents a manual credit.
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id         INTEGER NOT NULL REFERENCES users(id),
			activity_type    TEXT NOT NULL DEFAULT 'other',
			description      TEXT NOT NULL DEFAULT '',
			consumed_minutes INTEGER NOT NULL,
			source           TEXT NOT NULL DEFAULT '',
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_child ON activity_logs(child_id, created_at)`,
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// nowUTC returns the current instant formatted for storage.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime decodes a stored timestamp, tolerating the zero value.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// inTx runs fn inside a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
