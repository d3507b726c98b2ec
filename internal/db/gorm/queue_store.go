package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// QueueStore provides the durable recalculation queue using GORM.
type QueueStore struct {
	db *gorm.DB
}

// NewQueueStore creates a new queue store.
func NewQueueStore(store *Store) *QueueStore {
	return &QueueStore{db: store.DB}
}

// Enqueue adds a pending request for a deal. The partial unique index on
// (deal_id) WHERE status = 'pending' makes a duplicate enqueue a no-op;
// redundant processing would be harmless (recompute is idempotent) but
// coalescing keeps the queue small.
func (s *QueueStore) Enqueue(ctx context.Context, dealID int64, reason string) (bool, error) {
	record := &RecalcRequestRecord{
		DealID:     dealID,
		Reason:     reason,
		Status:     string(models.RequestPending),
		EnqueuedAt: time.Now().UnixMilli(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "deal_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Eq{Column: "status", Value: "pending"}}},
			DoNothing:   true,
		}).
		Create(record)
	if result.Error != nil {
		return false, fmt.Errorf("enqueue recalculation for deal %d: %w", dealID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DequeuePending returns up to limit pending requests oldest-first.
func (s *QueueStore) DequeuePending(ctx context.Context, limit int) ([]*models.RecalcRequest, error) {
	var records []RecalcRequestRecord

	err := s.db.WithContext(ctx).
		Where("status = ?", string(models.RequestPending)).
		Order("enqueued_at_epoch ASC, id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("dequeue pending requests: %w", err)
	}

	requests := make([]*models.RecalcRequest, 0, len(records))
	for i := range records {
		r := &records[i]
		requests = append(requests, &models.RecalcRequest{
			ID:              r.ID,
			DealID:          r.DealID,
			Reason:          r.Reason,
			Status:          models.RequestStatus(r.Status),
			Error:           r.Error.String,
			EnqueuedAtEpoch: r.EnqueuedAt,
		})
	}
	return requests, nil
}

// MarkRequest sets a request's terminal status and optional error text.
func (s *QueueStore) MarkRequest(ctx context.Context, id int64, status models.RequestStatus, errMsg string) error {
	updates := map[string]interface{}{
		"status": string(status),
		"error":  sql.NullString{String: errMsg, Valid: errMsg != ""},
	}

	result := s.db.WithContext(ctx).
		Model(&RecalcRequestRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("mark request %d %s: %w", id, status, result.Error)
	}
	return nil
}

// Ensure QueueStore satisfies the interface.
var _ db.QueueStore = (*QueueStore)(nil)
