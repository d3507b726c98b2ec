package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// AnalyticsStore provides the read-only archive aggregation input.
type AnalyticsStore struct {
	store *Store
}

// NewAnalyticsStore creates a new analytics store.
func NewAnalyticsStore(store *Store) *AnalyticsStore {
	return &AnalyticsStore{store: store}
}

// ArchiveAggregates returns one row per archive reason for archived deals
// matching the filter. NULL aggregates are coerced to zero in SQL.
func (s *AnalyticsStore) ArchiveAggregates(ctx context.Context, f models.ArchiveFilter) ([]models.ArchiveAggregate, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT COALESCE(archive_reason, 'unspecified') AS reason,
			COUNT(*) AS count,
			COALESCE(SUM(monthly_value), 0),
			COALESCE(SUM(one_time_value), 0),
			COALESCE(AVG(CASE WHEN sent_at_epoch IS NOT NULL
				THEN (archived_at_epoch - sent_at_epoch) / 86400000.0 END), 0)
		FROM deals
		WHERE status = 'archived'
	`)

	args := []interface{}{}
	if f.RepID != "" {
		sb.WriteString(" AND rep_id = ?")
		args = append(args, f.RepID)
	}
	if f.FromEpoch > 0 {
		sb.WriteString(" AND archived_at_epoch >= ?")
		args = append(args, f.FromEpoch)
	}
	if f.ToEpoch > 0 {
		sb.WriteString(" AND archived_at_epoch <= ?")
		args = append(args, f.ToEpoch)
	}
	sb.WriteString(" GROUP BY COALESCE(archive_reason, 'unspecified') ORDER BY count DESC")

	rows, err := s.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("archive aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []models.ArchiveAggregate
	for rows.Next() {
		var a models.ArchiveAggregate
		if err := rows.Scan(&a.Reason, &a.Count, &a.LostMonthlyValue, &a.LostOneTimeValue, &a.AvgDaysToArchive); err != nil {
			return nil, fmt.Errorf("scan archive aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// Ensure AnalyticsStore satisfies the interface.
var _ db.AnalyticsStore = (*AnalyticsStore)(nil)
