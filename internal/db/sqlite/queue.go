package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// QueueStore provides the durable recalculation queue.
type QueueStore struct {
	store *Store
}

// NewQueueStore creates a new queue store.
func NewQueueStore(store *Store) *QueueStore {
	return &QueueStore{store: store}
}

// Enqueue adds a pending request for a deal, coalescing with any existing
// pending request via the partial unique index.
func (s *QueueStore) Enqueue(ctx context.Context, dealID int64, reason string) (bool, error) {
	const query = `
		INSERT INTO recalc_requests (deal_id, reason, status, enqueued_at_epoch)
		VALUES (?, ?, 'pending', ?)
		ON CONFLICT (deal_id) WHERE status = 'pending' DO NOTHING
	`
	result, err := s.store.execContext(ctx, query, dealID, reason, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("enqueue recalculation for deal %d: %w", dealID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DequeuePending returns up to limit pending requests oldest-first.
func (s *QueueStore) DequeuePending(ctx context.Context, limit int) ([]*models.RecalcRequest, error) {
	const query = `
		SELECT id, deal_id, reason, status, COALESCE(error, ''), enqueued_at_epoch
		FROM recalc_requests
		WHERE status = 'pending'
		ORDER BY enqueued_at_epoch ASC, id ASC
		LIMIT ?
	`
	rows, err := s.store.queryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.RecalcRequest
	for rows.Next() {
		var r models.RecalcRequest
		if err := rows.Scan(&r.ID, &r.DealID, &r.Reason, &r.Status, &r.Error, &r.EnqueuedAtEpoch); err != nil {
			return nil, fmt.Errorf("scan recalc request: %w", err)
		}
		requests = append(requests, &r)
	}
	return requests, rows.Err()
}

// MarkRequest sets a request's terminal status and optional error text.
func (s *QueueStore) MarkRequest(ctx context.Context, id int64, status models.RequestStatus, errMsg string) error {
	const query = `UPDATE recalc_requests SET status = ?, error = ? WHERE id = ?`

	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	} else {
		errVal = sql.NullString{}
	}

	if _, err := s.store.execContext(ctx, query, string(status), errVal, id); err != nil {
		return fmt.Errorf("mark request %d %s: %w", id, status, err)
	}
	return nil
}

// Ensure QueueStore satisfies the interface.
var _ db.QueueStore = (*QueueStore)(nil)
