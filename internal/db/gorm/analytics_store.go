package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// AnalyticsStore provides the read-only archive aggregation input using GORM.
type AnalyticsStore struct {
	db *gorm.DB
}

// NewAnalyticsStore creates a new analytics store.
func NewAnalyticsStore(store *Store) *AnalyticsStore {
	return &AnalyticsStore{db: store.DB}
}

// ArchiveAggregates returns one row per archive reason for archived deals
// matching the filter. NULL aggregates from the database (no matching
// rows) are coerced to zero in SQL; zero rows back is a valid result.
func (s *AnalyticsStore) ArchiveAggregates(ctx context.Context, f models.ArchiveFilter) ([]models.ArchiveAggregate, error) {
	var rows []models.ArchiveAggregate

	query := s.db.WithContext(ctx).
		Model(&DealRecord{}).
		Select(`
			COALESCE(archive_reason, 'unspecified') AS reason,
			COUNT(*) AS count,
			COALESCE(SUM(monthly_value), 0) AS lost_monthly_value,
			COALESCE(SUM(one_time_value), 0) AS lost_one_time_value,
			COALESCE(AVG(CASE WHEN sent_at_epoch IS NOT NULL
				THEN (archived_at_epoch - sent_at_epoch) / 86400000.0 END), 0) AS avg_days_to_archive
		`).
		Where("status = ?", string(models.DealStatusArchived))

	if f.RepID != "" {
		query = query.Where("rep_id = ?", f.RepID)
	}
	if f.FromEpoch > 0 {
		query = query.Where("archived_at_epoch >= ?", f.FromEpoch)
	}
	if f.ToEpoch > 0 {
		query = query.Where("archived_at_epoch <= ?", f.ToEpoch)
	}

	err := query.
		Group("COALESCE(archive_reason, 'unspecified')").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("archive aggregates: %w", err)
	}
	return rows, nil
}

// Ensure AnalyticsStore satisfies the interface.
var _ db.AnalyticsStore = (*AnalyticsStore)(nil)
