package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// benign reports whether a recalculation error is an expected skip
// condition rather than a failure.
func benign(err error) bool {
	return errors.Is(err, models.ErrDealNotFound) || errors.Is(err, models.ErrDealTerminal)
}

// forEachIsolated runs fn for every item with at most concurrency workers,
// collecting per-item errors by index. One item failing never stops the
// others; the caller inspects the returned slice to count outcomes.
func forEachIsolated[T any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) error) []error {
	if concurrency < 1 {
		concurrency = 1
	}

	errs := make([]error, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			errs[i] = fn(gctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
