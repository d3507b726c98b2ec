// Package analytics builds read-only reports over archived deals.
package analytics

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/internal/db"
	"github.com/pipeboard/dealpulse/pkg/models"
)

// ArchiveReporter aggregates archived deals into a loss report.
type ArchiveReporter struct {
	log   zerolog.Logger
	store db.AnalyticsStore
}

// NewArchiveReporter creates an archive reporter.
func NewArchiveReporter(store db.AnalyticsStore, log zerolog.Logger) *ArchiveReporter {
	return &ArchiveReporter{
		store: store,
		log:   log.With().Str("component", "archive-analytics").Logger(),
	}
}

// Report builds the archive analytics report for the filter. Matching no
// deals yields a zero-valued report, not an error. Percentages are
// rounded to whole numbers, so the breakdown may not sum to exactly 100.
func (r *ArchiveReporter) Report(ctx context.Context, f models.ArchiveFilter) (*models.ArchiveReport, error) {
	aggs, err := r.store.ArchiveAggregates(ctx, f)
	if err != nil {
		return nil, err
	}

	report := &models.ArchiveReport{
		Breakdown: make([]models.ReasonBreakdown, 0, len(aggs)),
	}
	if len(aggs) == 0 {
		return report, nil
	}

	var weightedDays float64
	for _, a := range aggs {
		report.TotalArchived += a.Count
		report.LostMonthlyValue += a.LostMonthlyValue
		report.LostOneTimeValue += a.LostOneTimeValue
		weightedDays += a.AvgDaysToArchive * float64(a.Count)
	}
	report.AvgDaysToArchive = weightedDays / float64(report.TotalArchived)

	for _, a := range aggs {
		report.Breakdown = append(report.Breakdown, models.ReasonBreakdown{
			Reason:           a.Reason,
			Count:            a.Count,
			LostMonthlyValue: a.LostMonthlyValue,
			LostOneTimeValue: a.LostOneTimeValue,
			Percentage:       int(math.Round(float64(a.Count) / float64(report.TotalArchived) * 100)),
		})
	}

	// Aggregates arrive ordered by count descending, so the first row is
	// the dominant loss reason.
	top := report.Breakdown[0]
	report.TopReason = &top

	r.log.Debug().
		Int("total_archived", report.TotalArchived).
		Str("top_reason", top.Reason).
		Msg("archive report built")
	return report, nil
}
