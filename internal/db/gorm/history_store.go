package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// HistoryStore provides append-only score history storage using GORM.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{db: store.DB}
}

// AppendEntry inserts one score history entry. History is an append-only
// log: entries are never updated or deleted.
func (s *HistoryStore) AppendEntry(ctx context.Context, entry *models.ScoreHistoryEntry) (int64, error) {
	breakdown, err := encodeBreakdown(entry.Breakdown)
	if err != nil {
		return 0, fmt.Errorf("encode breakdown: %w", err)
	}

	record := &ScoreHistoryRecord{
		DealID:     entry.DealID,
		Score:      entry.Score,
		Stage:      string(entry.Stage),
		Reason:     entry.Reason,
		Breakdown:  breakdown,
		ComputedAt: entry.ComputedAtEpoch,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, fmt.Errorf("append history entry: %w", err)
	}
	return record.ID, nil
}

// LatestEntry returns the most recent entry for a deal, or nil when the
// deal has never been scored.
func (s *HistoryStore) LatestEntry(ctx context.Context, dealID int64) (*models.ScoreHistoryEntry, error) {
	var record ScoreHistoryRecord

	err := s.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("computed_at_epoch DESC, id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest history entry for deal %d: %w", dealID, err)
	}
	return toModelHistory(&record), nil
}

// ListEntries returns a deal's history newest-first, up to limit.
func (s *HistoryStore) ListEntries(ctx context.Context, dealID int64, limit int) ([]*models.ScoreHistoryEntry, error) {
	var records []ScoreHistoryRecord

	err := s.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("computed_at_epoch DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list history for deal %d: %w", dealID, err)
	}

	entries := make([]*models.ScoreHistoryEntry, 0, len(records))
	for i := range records {
		entries = append(entries, toModelHistory(&records[i]))
	}
	return entries, nil
}

// Ensure HistoryStore satisfies the interface.
var _ db.HistoryStore = (*HistoryStore)(nil)
