package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// Orchestrator sequences the daily batch run: drain the recalculation
// queue first so event-driven work lands before the sweep, then sweep
// stale scores.
type Orchestrator struct {
	log       zerolog.Logger
	processor *Processor
	sweeper   *Sweeper
}

// NewOrchestrator creates the daily batch orchestrator.
func NewOrchestrator(processor *Processor, sweeper *Sweeper, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		processor: processor,
		sweeper:   sweeper,
		log:       log.With().Str("component", "batch-orchestrator").Logger(),
	}
}

// RunDaily runs one full batch pass and returns the combined report.
// Individual deal failures inside either phase are already absorbed into
// the counts; only run-level failures (the queue or the stale listing
// being unreadable) abort the run and propagate.
func (o *Orchestrator) RunDaily(ctx context.Context) (*models.BatchReport, error) {
	start := time.Now()
	o.log.Info().Msg("daily batch run starting")

	queueCounts, err := o.processor.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue phase: %w", err)
	}

	staleCounts, err := o.sweeper.Sweep(ctx)
	if err != nil {
		return nil, fmt.Errorf("stale sweep phase: %w", err)
	}

	report := &models.BatchReport{
		Queue:           queueCounts,
		Stale:           staleCounts,
		TotalDurationMS: time.Since(start).Milliseconds(),
	}
	o.log.Info().
		Int("queue_processed", report.Queue.Processed).
		Int("stale_processed", report.Stale.Processed).
		Int64("total_duration_ms", report.TotalDurationMS).
		Msg("daily batch run complete")
	return report, nil
}
