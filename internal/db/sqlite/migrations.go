package sqlite

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; schema_migrations tracks what ran.
var migrations = []struct {
	id  string
	sql string
}{
	{
		id: "001_deals",
		sql: `CREATE TABLE IF NOT EXISTS deals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rep_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft', 'sent', 'declined', 'accepted', 'archived')),
			stage TEXT,
			predicted_tier TEXT,
			archive_reason TEXT,
			current_score REAL,
			created_at_epoch INTEGER NOT NULL,
			sent_at_epoch INTEGER,
			archived_at_epoch INTEGER,
			proposal_sent_at_epoch INTEGER,
			proposal_viewed_at_epoch INTEGER,
			email_opened_at_epoch INTEGER,
			last_scored_at_epoch INTEGER,
			monthly_value REAL NOT NULL DEFAULT 0,
			one_time_value REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_deals_status ON deals (status);
		CREATE INDEX IF NOT EXISTS idx_deals_rep ON deals (rep_id);
		CREATE INDEX IF NOT EXISTS idx_deals_last_scored ON deals (last_scored_at_epoch);
		CREATE INDEX IF NOT EXISTS idx_deals_archived ON deals (archived_at_epoch);`,
	},
	{
		id: "002_communication_events",
		sql: `CREATE TABLE IF NOT EXISTS communication_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deal_id INTEGER NOT NULL,
			direction TEXT NOT NULL CHECK (direction IN ('inbound', 'outbound')),
			channel TEXT NOT NULL CHECK (channel IN ('email', 'sms', 'chat', 'call', 'other')),
			source TEXT NOT NULL DEFAULT 'manual',
			dedup_key TEXT,
			occurred_at_epoch INTEGER NOT NULL,
			created_at_epoch INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup
			ON communication_events (dedup_key) WHERE dedup_key IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_events_deal_time
			ON communication_events (deal_id, occurred_at_epoch);`,
	},
	{
		id: "003_score_history",
		sql: `CREATE TABLE IF NOT EXISTS score_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deal_id INTEGER NOT NULL,
			score REAL NOT NULL,
			stage TEXT NOT NULL,
			reason TEXT NOT NULL,
			breakdown TEXT,
			computed_at_epoch INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_deal_time
			ON score_history (deal_id, computed_at_epoch DESC);`,
	},
	{
		id: "004_recalc_requests",
		sql: `CREATE TABLE IF NOT EXISTS recalc_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deal_id INTEGER NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'succeeded', 'failed', 'skipped')),
			error TEXT,
			enqueued_at_epoch INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_recalc_pending_deal
			ON recalc_requests (deal_id) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_recalc_status ON recalc_requests (status, enqueued_at_epoch);`,
	},
}

// runMigrations applies pending migrations inside transactions.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		id TEXT PRIMARY KEY,
		applied_at_epoch INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE id = ?`, m.id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.id, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.id, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.id, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (id, applied_at_epoch) VALUES (?, strftime('%s','now') * 1000)`,
			m.id,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.id, err)
		}
	}

	return nil
}
