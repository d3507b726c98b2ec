package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// Processor drains the durable recalculation queue.
type Processor struct {
	log         zerolog.Logger
	queue       db.QueueStore
	recalc      *Recalculator
	batchSize   int
	concurrency int
}

// NewProcessor creates a queue processor. batchSize caps one drain pass;
// concurrency caps parallel recalculations within it.
func NewProcessor(queue db.QueueStore, recalc *Recalculator, batchSize, concurrency int, log zerolog.Logger) *Processor {
	if batchSize < 1 {
		batchSize = 100
	}
	if concurrency < 1 {
		concurrency = 4
	}
	return &Processor{
		queue:       queue,
		recalc:      recalc,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log.With().Str("component", "queue-processor").Logger(),
	}
}

// Drain processes up to one batch of pending requests. Each request is
// recalculated in isolation and marked succeeded, failed, or skipped;
// a failing deal never blocks the rest of the batch. Requests for deals
// that vanished or reached a terminal status are marked skipped, not
// failed. An error is returned only when the queue itself cannot be read.
func (p *Processor) Drain(ctx context.Context) (models.BatchCounts, error) {
	start := time.Now()

	requests, err := p.queue.DequeuePending(ctx, p.batchSize)
	if err != nil {
		return models.BatchCounts{}, err
	}

	var counts models.BatchCounts
	counts.Processed = len(requests)
	if len(requests) == 0 {
		counts.DurationMS = time.Since(start).Milliseconds()
		return counts, nil
	}

	errs := forEachIsolated(ctx, requests, p.concurrency, func(ctx context.Context, req *models.RecalcRequest) error {
		_, err := p.recalc.Recalculate(ctx, req.DealID, req.Reason)
		return err
	})

	for i, req := range requests {
		status, errMsg := outcome(errs[i])
		switch status {
		case models.RequestSucceeded:
			counts.Succeeded++
		case models.RequestSkipped:
			counts.Skipped++
		case models.RequestFailed:
			counts.Failed++
			p.log.Warn().Err(errs[i]).
				Int64("deal_id", req.DealID).
				Int64("request_id", req.ID).
				Msg("queued recalculation failed")
		}
		if markErr := p.queue.MarkRequest(ctx, req.ID, status, errMsg); markErr != nil {
			p.log.Error().Err(markErr).
				Int64("request_id", req.ID).
				Msg("failed to mark queue request")
		}
	}

	counts.DurationMS = time.Since(start).Milliseconds()
	p.log.Info().
		Int("processed", counts.Processed).
		Int("succeeded", counts.Succeeded).
		Int("failed", counts.Failed).
		Int("skipped", counts.Skipped).
		Int64("duration_ms", counts.DurationMS).
		Msg("queue drain complete")
	return counts, nil
}

// outcome maps a recalculation error to the request's terminal status.
func outcome(err error) (models.RequestStatus, string) {
	switch {
	case err == nil:
		return models.RequestSucceeded, ""
	case benign(err):
		return models.RequestSkipped, err.Error()
	default:
		return models.RequestFailed, err.Error()
	}
}
