// Package engine orchestrates deal score recalculation: the per-deal
// trigger, the queue processor, the stale sweeper, and the daily batch run.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/internal/cache"
	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/internal/scoring"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// Recalculator runs one scoring pass for a single deal.
type Recalculator struct {
	log     zerolog.Logger
	deals   db.DealStore
	events  db.EventStore
	history db.HistoryStore
	calc    *scoring.Calculator
	cache   *cache.ScoreCache
}

// NewRecalculator creates a new recalculator. The cache may be nil.
func NewRecalculator(
	deals db.DealStore,
	events db.EventStore,
	history db.HistoryStore,
	calc *scoring.Calculator,
	scoreCache *cache.ScoreCache,
	log zerolog.Logger,
) *Recalculator {
	return &Recalculator{
		deals:   deals,
		events:  events,
		history: history,
		calc:    calc,
		cache:   scoreCache,
		log:     log.With().Str("component", "recalculator").Logger(),
	}
}

// Recalculate performs one scoring pass for the deal: fetch deal and
// events, compute, append a history entry, update the deal's current
// score and stage.
//
// Returns models.ErrDealNotFound when the deal no longer exists and
// models.ErrDealTerminal for accepted/declined/archived deals; batch
// callers treat both as skips. Storage errors surface unwrapped-able to
// the caller; there is no internal retry.
//
// Recalculation is idempotent for a fixed evaluation instant: re-running
// appends a new history row with identical values, and the latest row by
// timestamp always defines the current score. Concurrent recalculation of
// the same deal is safe because the computation is a pure function of
// persisted data at read time.
func (r *Recalculator) Recalculate(ctx context.Context, dealID int64, reason string) (*models.ScoreResult, error) {
	now := time.Now()

	deal, err := r.deals.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status.Terminal() {
		return nil, models.ErrDealTerminal
	}

	events, err := r.events.ListEventsByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	result := r.calc.Calculate(deal, events, now)

	entry := &models.ScoreHistoryEntry{
		DealID:          dealID,
		Score:           result.Score,
		Stage:           result.Stage,
		Reason:          reason,
		Breakdown:       result.Breakdown,
		ComputedAtEpoch: now.UnixMilli(),
	}
	if _, err := r.history.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	if err := r.deals.UpdateDealScore(ctx, dealID, result.Score, result.Stage, now); err != nil {
		return nil, fmt.Errorf("update deal: %w", err)
	}

	r.cache.Invalidate(ctx, dealID)

	r.log.Debug().
		Int64("deal_id", dealID).
		Str("reason", reason).
		Float64("score", result.Score).
		Str("stage", string(result.Stage)).
		Msg("deal recalculated")

	return &result, nil
}

// TriggerAsync submits a recalculation as a background unit of work.
// Failures are logged, never propagated: callers on mutation paths must
// not block or roll back because scoring failed.
func (r *Recalculator) TriggerAsync(ctx context.Context, dealID int64, reason string) {
	go func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		if _, err := r.Recalculate(runCtx, dealID, reason); err != nil {
			if benign(err) {
				return
			}
			r.log.Warn().Err(err).
				Int64("deal_id", dealID).
				Str("reason", reason).
				Msg("background recalculation failed")
		}
	}()
}
