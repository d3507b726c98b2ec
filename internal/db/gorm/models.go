package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// GORM Models
//
// Timestamps are stored as epoch milliseconds to keep ordering comparisons
// cheap and unambiguous across backends.

// DealRecord represents one sales opportunity.
// Field order optimized for memory alignment (fieldalignment).
type DealRecord struct {
	RepID          string          `gorm:"index:idx_deals_rep;not null"`
	Status         string          `gorm:"type:text;check:status IN ('draft', 'sent', 'declined', 'accepted', 'archived');default:'draft';index:idx_deals_status"`
	Stage          sql.NullString  `gorm:"type:text"`
	PredictedTier  sql.NullString  `gorm:"type:text"`
	ArchiveReason  sql.NullString  `gorm:"type:text;index:idx_deals_archive_reason"`
	CurrentScore   sql.NullFloat64 `gorm:"type:real"`
	SentAt         sql.NullInt64   `gorm:"column:sent_at_epoch"`
	ArchivedAt     sql.NullInt64   `gorm:"column:archived_at_epoch;index:idx_deals_archived"`
	ProposalSentAt sql.NullInt64   `gorm:"column:proposal_sent_at_epoch"`
	ProposalViewAt sql.NullInt64   `gorm:"column:proposal_viewed_at_epoch"`
	EmailOpenedAt  sql.NullInt64   `gorm:"column:email_opened_at_epoch"`
	LastScoredAt   sql.NullInt64   `gorm:"column:last_scored_at_epoch;index:idx_deals_last_scored"`
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	CreatedAtEpoch int64           `gorm:"index:idx_deals_created,sort:desc;not null"`
	MonthlyValue   float64         `gorm:"type:real;default:0"`
	OneTimeValue   float64         `gorm:"type:real;default:0"`
}

func (DealRecord) TableName() string { return "deals" }

// BeforeCreate hook to ensure timestamps are set.
func (d *DealRecord) BeforeCreate(tx *gorm.DB) error {
	if d.CreatedAtEpoch == 0 {
		d.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return nil
}

// CommunicationEventRecord is one contact touchpoint tied to a deal.
// Rows are append-only: never mutated or deleted.
type CommunicationEventRecord struct {
	Direction      string         `gorm:"type:text;check:direction IN ('inbound', 'outbound');not null"`
	Channel        string         `gorm:"type:text;check:channel IN ('email', 'sms', 'chat', 'call', 'other');not null"`
	Source         string         `gorm:"type:text;default:'manual'"`
	DedupKey       sql.NullString `gorm:"uniqueIndex:idx_events_dedup"`
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	DealID         int64          `gorm:"index:idx_events_deal;index:idx_events_deal_time,priority:1;not null"`
	OccurredAt     int64          `gorm:"column:occurred_at_epoch;index:idx_events_deal_time,priority:2;not null"`
	CreatedAtEpoch int64          `gorm:"not null"`
}

func (CommunicationEventRecord) TableName() string { return "communication_events" }

// BeforeCreate hook to ensure timestamps are set.
func (e *CommunicationEventRecord) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAtEpoch == 0 {
		e.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if e.OccurredAt == 0 {
		e.OccurredAt = e.CreatedAtEpoch
	}
	return nil
}

// ScoreHistoryRecord is an immutable audit record of one scoring
// computation. The latest row per deal defines the deal's current score.
type ScoreHistoryRecord struct {
	Reason     string  `gorm:"type:text;not null"`
	Stage      string  `gorm:"type:text;not null"`
	Breakdown  string  `gorm:"type:text"` // JSON map: signal name -> penalty
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	DealID     int64   `gorm:"index:idx_history_deal;index:idx_history_deal_time,priority:1;not null"`
	Score      float64 `gorm:"type:real;not null"`
	ComputedAt int64   `gorm:"column:computed_at_epoch;index:idx_history_deal_time,priority:2,sort:desc;not null"`
}

func (ScoreHistoryRecord) TableName() string { return "score_history" }

// RecalcRequestRecord is one queued recalculation request. A partial unique
// index on (deal_id) WHERE status = 'pending' coalesces duplicate enqueues.
type RecalcRequestRecord struct {
	Reason     string         `gorm:"type:text;not null"`
	Status     string         `gorm:"type:text;check:status IN ('pending', 'succeeded', 'failed', 'skipped');default:'pending';index:idx_recalc_status"`
	Error      sql.NullString `gorm:"type:text"`
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	DealID     int64          `gorm:"not null"`
	EnqueuedAt int64          `gorm:"column:enqueued_at_epoch;index:idx_recalc_enqueued;not null"`
}

func (RecalcRequestRecord) TableName() string { return "recalc_requests" }

// BeforeCreate hook to ensure timestamps are set.
func (r *RecalcRequestRecord) BeforeCreate(tx *gorm.DB) error {
	if r.EnqueuedAt == 0 {
		r.EnqueuedAt = time.Now().UnixMilli()
	}
	return nil
}
