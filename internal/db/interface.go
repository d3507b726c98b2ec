// Package db defines the storage interfaces for the dealpulse stores.
//
// The scoring engine depends only on these interfaces; the gorm (PostgreSQL)
// and sqlite (raw SQL) backends implement them interchangeably.
package db

import (
	"context"
	"time"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// EngagementKind identifies a deal-level engagement ping recorded by
// provider webhooks (as opposed to a communication event).
type EngagementKind string

const (
	EngagementEmailOpened    EngagementKind = "email_opened"
	EngagementProposalSent   EngagementKind = "proposal_sent"
	EngagementProposalViewed EngagementKind = "proposal_viewed"
)

// DealStore provides deal read/update operations.
type DealStore interface {
	// CreateDeal inserts a new deal and returns its id.
	CreateDeal(ctx context.Context, deal *models.Deal) (int64, error)

	// GetDealByID returns a deal, or models.ErrDealNotFound.
	GetDealByID(ctx context.Context, id int64) (*models.Deal, error)

	// UpdateDealScore writes the current score, stage, and last-scored
	// timestamp after a recalculation.
	UpdateDealScore(ctx context.Context, id int64, score float64, stage models.Stage, scoredAt time.Time) error

	// RecordEngagement updates the deal's engagement timestamp for the
	// given kind (email open, proposal sent/viewed).
	RecordEngagement(ctx context.Context, id int64, kind EngagementKind, at time.Time) error

	// ArchiveDeal marks a deal archived with a reason.
	ArchiveDeal(ctx context.Context, id int64, reason string, at time.Time) error

	// ListStaleDeals returns open (non-terminal) deals whose last score is
	// older than the cutoff (or that were never scored), up to limit.
	ListStaleDeals(ctx context.Context, scoredBefore time.Time, limit int) ([]*models.Deal, error)
}

// EventStore provides append-only communication event storage.
type EventStore interface {
	// AppendEvent inserts one event. Ingestion is idempotent on the
	// external dedup key: a duplicate key returns inserted=false with no
	// error and no new row.
	AppendEvent(ctx context.Context, ev *models.CommunicationEvent) (id int64, inserted bool, err error)

	// ListEventsByDeal returns all events for a deal ordered by contact
	// time ascending.
	ListEventsByDeal(ctx context.Context, dealID int64) ([]*models.CommunicationEvent, error)
}

// HistoryStore provides append-only score history storage.
type HistoryStore interface {
	// AppendEntry inserts one score history entry and returns its id.
	AppendEntry(ctx context.Context, entry *models.ScoreHistoryEntry) (int64, error)

	// LatestEntry returns the most recent entry for a deal, or nil when
	// the deal has never been scored.
	LatestEntry(ctx context.Context, dealID int64) (*models.ScoreHistoryEntry, error)

	// ListEntries returns a deal's history newest-first, up to limit.
	ListEntries(ctx context.Context, dealID int64, limit int) ([]*models.ScoreHistoryEntry, error)
}

// QueueStore provides the durable recalculation queue.
type QueueStore interface {
	// Enqueue adds a pending request for a deal. Duplicate pending
	// enqueues for the same deal coalesce: the second call returns
	// enqueued=false with no error.
	Enqueue(ctx context.Context, dealID int64, reason string) (enqueued bool, err error)

	// DequeuePending returns up to limit pending requests oldest-first.
	DequeuePending(ctx context.Context, limit int) ([]*models.RecalcRequest, error)

	// MarkRequest sets a request's terminal status and optional error text.
	MarkRequest(ctx context.Context, id int64, status models.RequestStatus, errMsg string) error
}

// AnalyticsStore provides the read-only archive aggregation input.
type AnalyticsStore interface {
	// ArchiveAggregates returns one row per archive reason for archived
	// deals matching the filter. No rows is a valid result, not an error.
	ArchiveAggregates(ctx context.Context, f models.ArchiveFilter) ([]models.ArchiveAggregate, error)
}
