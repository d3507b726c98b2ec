package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/pipeboard/dealpulse/pkg/models"
)

type fakeAnalyticsStore struct {
	aggs []models.ArchiveAggregate
	err  error
}

func (f *fakeAnalyticsStore) ArchiveAggregates(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveAggregate, error) {
	return f.aggs, f.err
}

// ArchiveSuite is a test suite for the archive reporter.
type ArchiveSuite struct {
	suite.Suite
	store *fakeAnalyticsStore
	ctx   context.Context
}

func (s *ArchiveSuite) SetupTest() {
	s.store = &fakeAnalyticsStore{}
	s.ctx = context.Background()
}

func (s *ArchiveSuite) reporter() *ArchiveReporter {
	return NewArchiveReporter(s.store, zerolog.Nop())
}

func TestArchiveSuite(t *testing.T) {
	suite.Run(t, new(ArchiveSuite))
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *ArchiveSuite) TestReport_GoodScenarios_AggregatesAcrossReasons() {
	s.store.aggs = []models.ArchiveAggregate{
		{Reason: "no_response", Count: 6, LostMonthlyValue: 600, LostOneTimeValue: 1200, AvgDaysToArchive: 30},
		{Reason: "too_expensive", Count: 3, LostMonthlyValue: 900, LostOneTimeValue: 0, AvgDaysToArchive: 10},
		{Reason: "went_elsewhere", Count: 1, LostMonthlyValue: 100, LostOneTimeValue: 50, AvgDaysToArchive: 20},
	}

	report, err := s.reporter().Report(s.ctx, models.ArchiveFilter{})

	s.Require().NoError(err)
	s.Equal(10, report.TotalArchived)
	s.InDelta(1600.0, report.LostMonthlyValue, 0.001)
	s.InDelta(1250.0, report.LostOneTimeValue, 0.001)
	// Weighted: (30*6 + 10*3 + 20*1) / 10 = 23.
	s.InDelta(23.0, report.AvgDaysToArchive, 0.001)

	s.Require().NotNil(report.TopReason)
	s.Equal("no_response", report.TopReason.Reason)
	s.Equal(60, report.TopReason.Percentage)

	s.Require().Len(report.Breakdown, 3)
	s.Equal(30, report.Breakdown[1].Percentage)
	s.Equal(10, report.Breakdown[2].Percentage)
}

func (s *ArchiveSuite) TestReport_GoodScenarios_SingleReason() {
	s.store.aggs = []models.ArchiveAggregate{
		{Reason: "no_response", Count: 4, LostMonthlyValue: 400, AvgDaysToArchive: 15},
	}

	report, err := s.reporter().Report(s.ctx, models.ArchiveFilter{RepID: "rep-7"})

	s.Require().NoError(err)
	s.Equal(4, report.TotalArchived)
	s.Equal(100, report.TopReason.Percentage)
}

// =============================================================================
// EDGE CASES - Boundary and unusual conditions
// =============================================================================

func (s *ArchiveSuite) TestReport_EdgeCases_NoArchivedDeals() {
	report, err := s.reporter().Report(s.ctx, models.ArchiveFilter{})

	s.Require().NoError(err)
	s.Zero(report.TotalArchived)
	s.Zero(report.LostMonthlyValue)
	s.Zero(report.AvgDaysToArchive)
	s.Nil(report.TopReason, "no archived deals means no top reason")
	s.NotNil(report.Breakdown, "breakdown serializes as [], not null")
	s.Empty(report.Breakdown)
}

func (s *ArchiveSuite) TestReport_EdgeCases_RoundingMayNotSumTo100() {
	s.store.aggs = []models.ArchiveAggregate{
		{Reason: "a", Count: 1},
		{Reason: "b", Count: 1},
		{Reason: "c", Count: 1},
	}

	report, err := s.reporter().Report(s.ctx, models.ArchiveFilter{})

	s.Require().NoError(err)
	sum := 0
	for _, b := range report.Breakdown {
		s.Equal(33, b.Percentage)
		sum += b.Percentage
	}
	s.Equal(99, sum, "independent rounding is documented behavior")
}

// =============================================================================
// BAD SCENARIOS - Failure handling
// =============================================================================

func (s *ArchiveSuite) TestReport_BadScenarios_StoreErrorPropagates() {
	s.store.err = errors.New("query timeout")

	_, err := s.reporter().Report(s.ctx, models.ArchiveFilter{})

	s.Error(err)
}
