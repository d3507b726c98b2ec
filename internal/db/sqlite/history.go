package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// HistoryStore provides append-only score history storage.
type HistoryStore struct {
	store *Store
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{store: store}
}

// AppendEntry inserts one score history entry and returns its id.
func (s *HistoryStore) AppendEntry(ctx context.Context, entry *models.ScoreHistoryEntry) (int64, error) {
	breakdown := "{}"
	if len(entry.Breakdown) > 0 {
		data, err := json.Marshal(entry.Breakdown)
		if err != nil {
			return 0, fmt.Errorf("encode breakdown: %w", err)
		}
		breakdown = string(data)
	}

	const query = `
		INSERT INTO score_history (deal_id, score, stage, reason, breakdown, computed_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.store.execContext(ctx, query,
		entry.DealID, entry.Score, string(entry.Stage), entry.Reason, breakdown, entry.ComputedAtEpoch,
	)
	if err != nil {
		return 0, fmt.Errorf("append history entry: %w", err)
	}
	return result.LastInsertId()
}

// LatestEntry returns the most recent entry for a deal, or nil when the
// deal has never been scored.
func (s *HistoryStore) LatestEntry(ctx context.Context, dealID int64) (*models.ScoreHistoryEntry, error) {
	const query = `
		SELECT id, deal_id, score, stage, reason, COALESCE(breakdown, '{}'), computed_at_epoch
		FROM score_history
		WHERE deal_id = ?
		ORDER BY computed_at_epoch DESC, id DESC
		LIMIT 1
	`
	row := s.store.queryRowContext(ctx, query, dealID)
	entry, err := scanHistory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest history entry for deal %d: %w", dealID, err)
	}
	return entry, nil
}

// ListEntries returns a deal's history newest-first, up to limit.
func (s *HistoryStore) ListEntries(ctx context.Context, dealID int64, limit int) ([]*models.ScoreHistoryEntry, error) {
	const query = `
		SELECT id, deal_id, score, stage, reason, COALESCE(breakdown, '{}'), computed_at_epoch
		FROM score_history
		WHERE deal_id = ?
		ORDER BY computed_at_epoch DESC, id DESC
		LIMIT ?
	`
	rows, err := s.store.queryContext(ctx, query, dealID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history for deal %d: %w", dealID, err)
	}
	defer rows.Close()

	var entries []*models.ScoreHistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// scanHistory reads one history row, decoding the breakdown JSON. A
// corrupt breakdown degrades to an empty map rather than failing the read.
func scanHistory(scan func(dest ...interface{}) error) (*models.ScoreHistoryEntry, error) {
	var (
		entry     models.ScoreHistoryEntry
		breakdown string
	)
	if err := scan(
		&entry.ID, &entry.DealID, &entry.Score, &entry.Stage, &entry.Reason,
		&breakdown, &entry.ComputedAtEpoch,
	); err != nil {
		return nil, err
	}
	entry.Breakdown = map[string]float64{}
	_ = json.Unmarshal([]byte(breakdown), &entry.Breakdown)
	return &entry, nil
}

// Ensure HistoryStore satisfies the interface.
var _ db.HistoryStore = (*HistoryStore)(nil)
