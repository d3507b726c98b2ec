package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables (deals, events, history, queue)
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&DealRecord{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&CommunicationEventRecord{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&ScoreHistoryRecord{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&RecalcRequestRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("deals", "communication_events", "score_history", "recalc_requests")
			},
		},

		// Migration 002: partial unique index coalescing pending recalc
		// requests per deal. AutoMigrate cannot express the WHERE clause.
		{
			ID: "002_recalc_pending_unique",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_recalc_pending_deal
					 ON recalc_requests (deal_id) WHERE status = 'pending'`,
				).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_recalc_pending_deal`).Error
			},
		},
	})

	return m.Migrate()
}
