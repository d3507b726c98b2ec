package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// EventStore provides communication event storage using GORM.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates a new event store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{db: store.DB}
}

// AppendEvent inserts one event. When the event carries an external dedup
// key that already exists, the insert is a no-op and inserted is false:
// duplicate webhook deliveries must never create a second row.
func (s *EventStore) AppendEvent(ctx context.Context, ev *models.CommunicationEvent) (int64, bool, error) {
	record := &CommunicationEventRecord{
		DealID:     ev.DealID,
		Direction:  string(ev.Direction),
		Channel:    string(ev.Channel),
		Source:     string(ev.Source),
		OccurredAt: ev.OccurredAtEpoch,
	}
	if ev.DedupKey != "" {
		record.DedupKey = sql.NullString{String: ev.DedupKey, Valid: true}
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return 0, false, fmt.Errorf("append event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return record.ID, true, nil
}

// ListEventsByDeal returns all events for a deal ordered by contact time
// ascending.
func (s *EventStore) ListEventsByDeal(ctx context.Context, dealID int64) ([]*models.CommunicationEvent, error) {
	var records []CommunicationEventRecord

	err := s.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("occurred_at_epoch ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list events for deal %d: %w", dealID, err)
	}

	events := make([]*models.CommunicationEvent, 0, len(records))
	for i := range records {
		events = append(events, toModelEvent(&records[i]))
	}
	return events, nil
}

// Ensure EventStore satisfies the interface.
var _ db.EventStore = (*EventStore)(nil)
