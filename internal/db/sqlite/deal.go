package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// DealStore provides deal-related database operations.
type DealStore struct {
	store *Store
}

// NewDealStore creates a new deal store.
func NewDealStore(store *Store) *DealStore {
	return &DealStore{store: store}
}

const dealColumns = `id, rep_id, status, stage, predicted_tier, archive_reason,
	current_score, created_at_epoch, sent_at_epoch, archived_at_epoch,
	proposal_sent_at_epoch, proposal_viewed_at_epoch, email_opened_at_epoch,
	last_scored_at_epoch, monthly_value, one_time_value`

// scanDeal reads one deal row into the domain model.
func scanDeal(scan func(dest ...interface{}) error) (*models.Deal, error) {
	var (
		d             models.Deal
		stage         sql.NullString
		tier          sql.NullString
		archiveReason sql.NullString
		score         sql.NullFloat64
		sentAt        sql.NullInt64
		archivedAt    sql.NullInt64
		propSentAt    sql.NullInt64
		propViewAt    sql.NullInt64
		emailOpenAt   sql.NullInt64
		lastScoredAt  sql.NullInt64
	)

	err := scan(
		&d.ID, &d.RepID, &d.Status, &stage, &tier, &archiveReason,
		&score, &d.CreatedAtEpoch, &sentAt, &archivedAt,
		&propSentAt, &propViewAt, &emailOpenAt,
		&lastScoredAt, &d.MonthlyValue, &d.OneTimeValue,
	)
	if err != nil {
		return nil, err
	}

	d.Stage = models.Stage(stage.String)
	d.PredictedTier = tier.String
	d.ArchiveReason = archiveReason.String
	d.SentAtEpoch = sentAt.Int64
	d.ArchivedAtEpoch = archivedAt.Int64
	d.ProposalSentAtEpoch = propSentAt.Int64
	d.ProposalViewedAtEpoch = propViewAt.Int64
	d.EmailOpenedAtEpoch = emailOpenAt.Int64
	d.LastScoredAtEpoch = lastScoredAt.Int64
	if score.Valid {
		v := score.Float64
		d.CurrentScore = &v
	}
	return &d, nil
}

// CreateDeal inserts a new deal and returns its id.
func (s *DealStore) CreateDeal(ctx context.Context, deal *models.Deal) (int64, error) {
	createdAt := deal.CreatedAtEpoch
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	const query = `
		INSERT INTO deals (rep_id, status, stage, predicted_tier,
			created_at_epoch, sent_at_epoch, proposal_sent_at_epoch,
			monthly_value, one_time_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.store.execContext(ctx, query,
		deal.RepID, string(deal.Status), nullStr(string(deal.Stage)), nullStr(deal.PredictedTier),
		createdAt, nullEpoch(deal.SentAtEpoch), nullEpoch(deal.ProposalSentAtEpoch),
		deal.MonthlyValue, deal.OneTimeValue,
	)
	if err != nil {
		return 0, fmt.Errorf("create deal: %w", err)
	}
	return result.LastInsertId()
}

// GetDealByID returns a deal, or models.ErrDealNotFound.
func (s *DealStore) GetDealByID(ctx context.Context, id int64) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = ?`

	row := s.store.queryRowContext(ctx, query, id)
	deal, err := scanDeal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deal %d: %w", id, err)
	}
	return deal, nil
}

// UpdateDealScore writes the current score, stage, and last-scored
// timestamp after a recalculation.
func (s *DealStore) UpdateDealScore(ctx context.Context, id int64, score float64, stage models.Stage, scoredAt time.Time) error {
	const query = `
		UPDATE deals
		SET current_score = ?, stage = ?, last_scored_at_epoch = ?
		WHERE id = ?
	`
	result, err := s.store.execContext(ctx, query, score, string(stage), scoredAt.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update deal score %d: %w", id, err)
	}
	return requireRow(result, id)
}

// RecordEngagement updates the deal's engagement timestamp for the given
// kind.
func (s *DealStore) RecordEngagement(ctx context.Context, id int64, kind db.EngagementKind, at time.Time) error {
	var query string
	switch kind {
	case db.EngagementEmailOpened:
		query = `UPDATE deals SET email_opened_at_epoch = ? WHERE id = ?`
	case db.EngagementProposalSent:
		query = `UPDATE deals SET proposal_sent_at_epoch = ? WHERE id = ?`
	case db.EngagementProposalViewed:
		query = `UPDATE deals SET proposal_viewed_at_epoch = ? WHERE id = ?`
	default:
		return fmt.Errorf("unknown engagement kind %q", kind)
	}

	result, err := s.store.execContext(ctx, query, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("record engagement %s for deal %d: %w", kind, id, err)
	}
	return requireRow(result, id)
}

// ArchiveDeal marks a deal archived with a reason.
func (s *DealStore) ArchiveDeal(ctx context.Context, id int64, reason string, at time.Time) error {
	const query = `
		UPDATE deals
		SET status = 'archived', archive_reason = ?, archived_at_epoch = ?
		WHERE id = ?
	`
	result, err := s.store.execContext(ctx, query, reason, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("archive deal %d: %w", id, err)
	}
	return requireRow(result, id)
}

// ListStaleDeals returns open deals whose last score is older than the
// cutoff, or that were never scored, oldest-scored first.
func (s *DealStore) ListStaleDeals(ctx context.Context, scoredBefore time.Time, limit int) ([]*models.Deal, error) {
	query := `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE status NOT IN ('accepted', 'declined', 'archived')
		  AND (last_scored_at_epoch IS NULL OR last_scored_at_epoch < ?)
		ORDER BY last_scored_at_epoch ASC NULLS FIRST
		LIMIT ?
	`
	rows, err := s.store.queryContext(ctx, query, scoredBefore.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale deals: %w", err)
	}
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan stale deal: %w", err)
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// requireRow maps a zero-row update to ErrDealNotFound.
func requireRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullEpoch(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// Ensure DealStore satisfies the interface.
var _ db.DealStore = (*DealStore)(nil)
