package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// EventStore provides communication event storage.
type EventStore struct {
	store *Store
}

// NewEventStore creates a new event store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{store: store}
}

// AppendEvent inserts one event, treating a duplicate external dedup key
// as a no-op. The conflict target matches the partial unique index on
// dedup_key.
func (s *EventStore) AppendEvent(ctx context.Context, ev *models.CommunicationEvent) (int64, bool, error) {
	occurredAt := ev.OccurredAtEpoch
	if occurredAt == 0 {
		occurredAt = time.Now().UnixMilli()
	}

	const query = `
		INSERT INTO communication_events
			(deal_id, direction, channel, source, dedup_key, occurred_at_epoch, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
	`
	result, err := s.store.execContext(ctx, query,
		ev.DealID, string(ev.Direction), string(ev.Channel), string(ev.Source),
		nullStr(ev.DedupKey), occurredAt, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("append event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := result.LastInsertId()
	return id, true, err
}

// ListEventsByDeal returns all events for a deal ordered by contact time
// ascending.
func (s *EventStore) ListEventsByDeal(ctx context.Context, dealID int64) ([]*models.CommunicationEvent, error) {
	const query = `
		SELECT id, deal_id, direction, channel, source,
			COALESCE(dedup_key, ''), occurred_at_epoch
		FROM communication_events
		WHERE deal_id = ?
		ORDER BY occurred_at_epoch ASC, id ASC
	`
	rows, err := s.store.queryContext(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("list events for deal %d: %w", dealID, err)
	}
	defer rows.Close()

	var events []*models.CommunicationEvent
	for rows.Next() {
		var ev models.CommunicationEvent
		if err := rows.Scan(
			&ev.ID, &ev.DealID, &ev.Direction, &ev.Channel, &ev.Source,
			&ev.DedupKey, &ev.OccurredAtEpoch,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Ensure EventStore satisfies the interface.
var _ db.EventStore = (*EventStore)(nil)
