package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// CalculatorSuite is a test suite for the Calculator.
type CalculatorSuite struct {
	suite.Suite
	calc   *Calculator
	config *models.ScoringConfig
	now    time.Time
}

func (s *CalculatorSuite) SetupTest() {
	s.config = models.DefaultScoringConfig()
	s.calc = NewCalculator(s.config)
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) epochHoursAgo(h float64) int64 {
	return s.now.Add(-time.Duration(h * float64(time.Hour))).UnixMilli()
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *CalculatorSuite) TestCalculate_GoodScenarios_FreshDeal() {
	deal := &models.Deal{
		ID:          1,
		Status:      models.DealStatusSent,
		SentAtEpoch: s.now.UnixMilli(),
	}

	result := s.calc.Calculate(deal, nil, s.now)

	s.Equal(100.0, result.Score, "a just-sent deal carries no penalties")
	s.Equal(models.StageThriving, result.Stage)
	s.Zero(result.Breakdown[models.SignalSilence])
	s.NotContains(result.Breakdown, models.SignalProposalView,
		"proposal signal without a sent proposal is inapplicable")
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_SilenceOnlyAfterSixDays() {
	// Sent 6 days ago, no inbound reply, but the client opened the email
	// recently. Only the silence penalty applies: the open resets the
	// email signal without counting as communication.
	deal := &models.Deal{
		ID:                 1,
		Status:             models.DealStatusSent,
		SentAtEpoch:        s.epochHoursAgo(144),
		EmailOpenedAtEpoch: s.epochHoursAgo(2),
	}
	events := []*models.CommunicationEvent{
		{DealID: 1, Direction: models.DirectionOutbound, Channel: models.ChannelEmail, OccurredAtEpoch: s.epochHoursAgo(144)},
	}

	result := s.calc.Calculate(deal, events, s.now)

	s.InDelta(97.0, result.Score, 0.001, "100 - (144-120)/24*3 = 97")
	s.Equal(models.StageThriving, result.Stage)
	s.InDelta(3.0, result.Breakdown[models.SignalSilence], 0.001)
	s.Zero(result.Breakdown[models.SignalEmailOpen], "the open reset the email signal")
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_SilenceAnchoredAtLastInbound() {
	// Sent 10 days ago, last inbound contact 8 days (192h) ago, proposal
	// never sent. Silence decays from the last contact, not from sending.
	deal := &models.Deal{
		ID:          2,
		Status:      models.DealStatusSent,
		SentAtEpoch: s.epochHoursAgo(240),
	}
	events := []*models.CommunicationEvent{
		{DealID: 2, Direction: models.DirectionInbound, Channel: models.ChannelCall, OccurredAtEpoch: s.epochHoursAgo(192)},
	}

	result := s.calc.Calculate(deal, events, s.now)

	s.InDelta(91.0, result.Score, 0.001, "100 - min(80, (192-120)/24*3) = 91")
	s.Equal(models.StageThriving, result.Stage)
	s.InDelta(9.0, result.Breakdown[models.SignalSilence], 0.001)
	s.NotContains(result.Breakdown, models.SignalProposalView)
	s.NotContains(result.Breakdown, models.SignalEmailOpen,
		"no outbound email means the open signal has no anchor")
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_AllSignalsAccrue() {
	// 12 days of silence, outbound email and proposal sent at the same
	// time, never opened or viewed.
	sent := s.epochHoursAgo(288)
	deal := &models.Deal{
		ID:                  3,
		Status:              models.DealStatusSent,
		SentAtEpoch:         sent,
		ProposalSentAtEpoch: sent,
	}
	events := []*models.CommunicationEvent{
		{DealID: 3, Direction: models.DirectionOutbound, Channel: models.ChannelEmail, OccurredAtEpoch: sent},
	}

	result := s.calc.Calculate(deal, events, s.now)

	// silence: (288-120)/24*3 = 21; email: (288-24)/24*2.5 = 27.5;
	// proposal: (288-48)/24*2 = 20. Total 68.5.
	s.InDelta(21.0, result.Breakdown[models.SignalSilence], 0.001)
	s.InDelta(27.5, result.Breakdown[models.SignalEmailOpen], 0.001)
	s.InDelta(20.0, result.Breakdown[models.SignalProposalView], 0.001)
	s.InDelta(31.5, result.Score, 0.001)
	s.Equal(models.StageAtRisk, result.Stage)
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_ProposalViewResets() {
	deal := &models.Deal{
		ID:                    4,
		Status:                models.DealStatusSent,
		SentAtEpoch:           s.epochHoursAgo(100),
		ProposalSentAtEpoch:   s.epochHoursAgo(100),
		ProposalViewedAtEpoch: s.epochHoursAgo(50),
	}

	result := s.calc.Calculate(deal, nil, s.now)

	s.Zero(result.Breakdown[models.SignalProposalView], "a view zeroes the proposal penalty")
	s.Equal(100.0, result.Score)
}

func (s *CalculatorSuite) TestCalculate_GoodScenarios_Deterministic() {
	deal := &models.Deal{
		ID:                  5,
		Status:              models.DealStatusSent,
		SentAtEpoch:         s.epochHoursAgo(500),
		ProposalSentAtEpoch: s.epochHoursAgo(400),
	}
	events := []*models.CommunicationEvent{
		{DealID: 5, Direction: models.DirectionInbound, Channel: models.ChannelEmail, OccurredAtEpoch: s.epochHoursAgo(300)},
		{DealID: 5, Direction: models.DirectionOutbound, Channel: models.ChannelEmail, OccurredAtEpoch: s.epochHoursAgo(250)},
	}

	first := s.calc.Calculate(deal, events, s.now)
	second := s.calc.Calculate(deal, events, s.now)

	s.Equal(first, second, "identical inputs must yield identical output")
}

// =============================================================================
// EDGE CASES - Boundary and unusual conditions
// =============================================================================

func (s *CalculatorSuite) TestCalculate_EdgeCases_ClampedToZero() {
	// A deal abandoned for a year hits every cap: 80 + 35 + 25 = 140,
	// clamped to 0 rather than going negative.
	sent := s.epochHoursAgo(24 * 365)
	deal := &models.Deal{
		ID:                  6,
		Status:              models.DealStatusSent,
		SentAtEpoch:         sent,
		ProposalSentAtEpoch: sent,
	}
	events := []*models.CommunicationEvent{
		{DealID: 6, Direction: models.DirectionOutbound, Channel: models.ChannelEmail, OccurredAtEpoch: sent},
	}

	result := s.calc.Calculate(deal, events, s.now)

	s.Equal(0.0, result.Score)
	s.Equal(models.StageCritical, result.Stage)
	s.Equal(80.0, result.Breakdown[models.SignalSilence])
	s.Equal(35.0, result.Breakdown[models.SignalEmailOpen])
	s.Equal(25.0, result.Breakdown[models.SignalProposalView])
}

func (s *CalculatorSuite) TestCalculate_EdgeCases_NoAnchorsAtAll() {
	// Draft deal never sent: every signal lacks an anchor.
	deal := &models.Deal{ID: 7, Status: models.DealStatusDraft}

	result := s.calc.Calculate(deal, nil, s.now)

	s.Equal(100.0, result.Score)
	s.Empty(result.Breakdown)
}

func (s *CalculatorSuite) TestCalculate_EdgeCases_StageBoundaries() {
	cases := []struct {
		score float64
		stage models.Stage
	}{
		{100, models.StageThriving},
		{80, models.StageThriving},
		{79.9, models.StageHealthy},
		{60, models.StageHealthy},
		{59.9, models.StageNeedsAttention},
		{40, models.StageNeedsAttention},
		{39.9, models.StageAtRisk},
		{20, models.StageAtRisk},
		{19.9, models.StageCritical},
		{0, models.StageCritical},
	}
	for _, tc := range cases {
		s.Equal(tc.stage, s.config.StageFor(tc.score), "score %.1f", tc.score)
	}
}

func (s *CalculatorSuite) TestCalculate_EdgeCases_OutboundOnlyKeepsSilenceOnSent() {
	// Outbound follow-ups do not move the silence anchor: only the client
	// replying counts as contact.
	deal := &models.Deal{
		ID:          8,
		Status:      models.DealStatusSent,
		SentAtEpoch: s.epochHoursAgo(144),
	}
	events := []*models.CommunicationEvent{
		{DealID: 8, Direction: models.DirectionOutbound, Channel: models.ChannelSMS, OccurredAtEpoch: s.epochHoursAgo(24)},
	}

	result := s.calc.Calculate(deal, events, s.now)

	s.InDelta(3.0, result.Breakdown[models.SignalSilence], 0.001)
}

func (s *CalculatorSuite) TestNewCalculator_EdgeCases_NilConfigUsesDefaults() {
	calc := NewCalculator(nil)

	s.Equal(100.0, calc.Config().BaseScore)
	s.Equal(120.0, calc.Config().Silence.GraceHours)
}
