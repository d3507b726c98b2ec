package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// DealStore provides deal-related database operations using GORM.
type DealStore struct {
	db *gorm.DB
}

// NewDealStore creates a new deal store.
func NewDealStore(store *Store) *DealStore {
	return &DealStore{db: store.DB}
}

// CreateDeal inserts a new deal and returns its id.
func (s *DealStore) CreateDeal(ctx context.Context, deal *models.Deal) (int64, error) {
	record := toDealRecord(deal)
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, fmt.Errorf("create deal: %w", err)
	}
	return record.ID, nil
}

// GetDealByID returns a deal, or models.ErrDealNotFound.
func (s *DealStore) GetDealByID(ctx context.Context, id int64) (*models.Deal, error) {
	var record DealRecord
	err := s.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deal %d: %w", id, err)
	}
	return toModelDeal(&record), nil
}

// UpdateDealScore writes the current score, stage, and last-scored
// timestamp after a recalculation.
func (s *DealStore) UpdateDealScore(ctx context.Context, id int64, score float64, stage models.Stage, scoredAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&DealRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_score":        score,
			"stage":                string(stage),
			"last_scored_at_epoch": scoredAt.UnixMilli(),
		})
	if result.Error != nil {
		return fmt.Errorf("update deal score %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

// RecordEngagement updates the deal's engagement timestamp for the given
// kind. Engagement pings come from provider webhooks (email opens,
// proposal link views) and feed the decay signals without creating
// communication events.
func (s *DealStore) RecordEngagement(ctx context.Context, id int64, kind db.EngagementKind, at time.Time) error {
	var column string
	switch kind {
	case db.EngagementEmailOpened:
		column = "email_opened_at_epoch"
	case db.EngagementProposalSent:
		column = "proposal_sent_at_epoch"
	case db.EngagementProposalViewed:
		column = "proposal_viewed_at_epoch"
	default:
		return fmt.Errorf("unknown engagement kind %q", kind)
	}

	result := s.db.WithContext(ctx).
		Model(&DealRecord{}).
		Where("id = ?", id).
		Update(column, at.UnixMilli())
	if result.Error != nil {
		return fmt.Errorf("record engagement %s for deal %d: %w", kind, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

// ArchiveDeal marks a deal archived with a reason. Archived deals become
// immutable except for analytics reads.
func (s *DealStore) ArchiveDeal(ctx context.Context, id int64, reason string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&DealRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            string(models.DealStatusArchived),
			"archive_reason":    reason,
			"archived_at_epoch": at.UnixMilli(),
		})
	if result.Error != nil {
		return fmt.Errorf("archive deal %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

// ListStaleDeals returns open deals whose last score is older than the
// cutoff, or that were never scored, oldest-scored first.
func (s *DealStore) ListStaleDeals(ctx context.Context, scoredBefore time.Time, limit int) ([]*models.Deal, error) {
	var records []DealRecord

	err := s.db.WithContext(ctx).
		Where("status NOT IN ?", []string{
			string(models.DealStatusAccepted),
			string(models.DealStatusDeclined),
			string(models.DealStatusArchived),
		}).
		Where("last_scored_at_epoch IS NULL OR last_scored_at_epoch < ?", scoredBefore.UnixMilli()).
		Order("last_scored_at_epoch ASC NULLS FIRST").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list stale deals: %w", err)
	}

	deals := make([]*models.Deal, 0, len(records))
	for i := range records {
		deals = append(deals, toModelDeal(&records[i]))
	}
	return deals, nil
}

// Ensure DealStore satisfies the interface.
var _ db.DealStore = (*DealStore)(nil)
