package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// Sweeper recalculates open deals whose score has gone stale. Because
// penalties grow purely with elapsed time, a deal's stored score drifts
// from its true value even when nothing happens to the deal; the sweep
// catches deals no event-driven trigger has touched recently.
type Sweeper struct {
	log         zerolog.Logger
	deals       db.DealStore
	recalc      *Recalculator
	staleAfter  time.Duration
	batchSize   int
	concurrency int
}

// NewSweeper creates a stale-score sweeper. staleAfter is the maximum
// score age before a deal is considered stale.
func NewSweeper(deals db.DealStore, recalc *Recalculator, staleAfter time.Duration, batchSize, concurrency int, log zerolog.Logger) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = 23 * time.Hour
	}
	if batchSize < 1 {
		batchSize = 500
	}
	if concurrency < 1 {
		concurrency = 4
	}
	return &Sweeper{
		deals:       deals,
		recalc:      recalc,
		staleAfter:  staleAfter,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log.With().Str("component", "stale-sweeper").Logger(),
	}
}

// Sweep recalculates every open deal whose last score predates the
// staleness cutoff, never-scored deals included. Per-deal failures are
// isolated and counted; an error is returned only when the stale set
// itself cannot be listed.
func (s *Sweeper) Sweep(ctx context.Context) (models.BatchCounts, error) {
	start := time.Now()
	cutoff := start.Add(-s.staleAfter)

	stale, err := s.deals.ListStaleDeals(ctx, cutoff, s.batchSize)
	if err != nil {
		return models.BatchCounts{}, err
	}

	var counts models.BatchCounts
	counts.Processed = len(stale)
	if len(stale) == 0 {
		counts.DurationMS = time.Since(start).Milliseconds()
		return counts, nil
	}

	errs := forEachIsolated(ctx, stale, s.concurrency, func(ctx context.Context, deal *models.Deal) error {
		_, err := s.recalc.Recalculate(ctx, deal.ID, models.ReasonStaleSweep)
		return err
	})

	for i, deal := range stale {
		switch {
		case errs[i] == nil:
			counts.Succeeded++
		case benign(errs[i]):
			counts.Skipped++
		default:
			counts.Failed++
			s.log.Warn().Err(errs[i]).
				Int64("deal_id", deal.ID).
				Msg("stale sweep recalculation failed")
		}
	}

	counts.DurationMS = time.Since(start).Milliseconds()
	s.log.Info().
		Int("processed", counts.Processed).
		Int("succeeded", counts.Succeeded).
		Int("failed", counts.Failed).
		Int("skipped", counts.Skipped).
		Int64("duration_ms", counts.DurationMS).
		Msg("stale sweep complete")
	return counts, nil
}
