package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// DecaySuite is a test suite for the decay penalty functions.
type DecaySuite struct {
	suite.Suite
	params models.SignalParams
	now    time.Time
}

func (s *DecaySuite) SetupTest() {
	// Silence defaults: 5-day grace, 3 points per day, capped at 80.
	s.params = models.SignalParams{GraceHours: 120, DailyRate: 3.0, MaxPenalty: 80}
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestDecaySuite(t *testing.T) {
	suite.Run(t, new(DecaySuite))
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *DecaySuite) TestPenalty_GoodScenarios_WithinGrace() {
	s.Zero(Penalty(0, s.params), "no elapsed time accrues nothing")
	s.Zero(Penalty(60, s.params), "halfway through grace accrues nothing")
	s.Zero(Penalty(119.9, s.params), "just inside grace accrues nothing")
}

func (s *DecaySuite) TestPenalty_GoodScenarios_ExactGraceBoundary() {
	s.Zero(Penalty(120, s.params), "penalty starts only past the grace period")
}

func (s *DecaySuite) TestPenalty_GoodScenarios_LinearGrowth() {
	// 24 hours past grace = one day = one daily rate.
	s.InDelta(3.0, Penalty(144, s.params), 0.001)
	// Two days past grace.
	s.InDelta(6.0, Penalty(168, s.params), 0.001)
	// Half a day past grace.
	s.InDelta(1.5, Penalty(132, s.params), 0.001)
}

func (s *DecaySuite) TestPenalty_GoodScenarios_CapReached() {
	// 80 points at 3/day takes ~26.7 days past grace; a year is far beyond.
	s.Equal(80.0, Penalty(24*365, s.params), "penalty never exceeds the cap")
}

func (s *DecaySuite) TestSignalPenalty_GoodScenarios_AnchorOnly() {
	anchor := s.now.Add(-144 * time.Hour).UnixMilli()

	penalty, applicable := SignalPenalty(anchor, 0, s.now, s.params)

	s.True(applicable)
	s.InDelta(3.0, penalty, 0.001)
}

func (s *DecaySuite) TestSignalPenalty_GoodScenarios_ResetAfterAnchor() {
	anchor := s.now.Add(-200 * time.Hour).UnixMilli()
	reset := s.now.Add(-1 * time.Hour).UnixMilli()

	penalty, applicable := SignalPenalty(anchor, reset, s.now, s.params)

	s.True(applicable)
	s.Zero(penalty, "a reset at or after the anchor zeroes the penalty")
}

// =============================================================================
// EDGE CASES - Boundary and unusual conditions
// =============================================================================

func (s *DecaySuite) TestSignalPenalty_EdgeCases_MissingAnchor() {
	penalty, applicable := SignalPenalty(0, 0, s.now, s.params)

	s.False(applicable, "a signal with no anchor event is inapplicable")
	s.Zero(penalty)
}

func (s *DecaySuite) TestSignalPenalty_EdgeCases_StaleReset() {
	// A reset older than the anchor does not zero the penalty: the clock
	// restarted when the newer anchor event occurred.
	anchor := s.now.Add(-144 * time.Hour).UnixMilli()
	reset := s.now.Add(-300 * time.Hour).UnixMilli()

	penalty, applicable := SignalPenalty(anchor, reset, s.now, s.params)

	s.True(applicable)
	s.InDelta(3.0, penalty, 0.001)
}

func (s *DecaySuite) TestPenalty_EdgeCases_NegativeElapsed() {
	// Clock skew: anchor in the future clamps to zero, never a bonus.
	s.Zero(Penalty(-10, s.params))
}

func (s *DecaySuite) TestSignalPenalty_EdgeCases_FutureAnchor() {
	anchor := s.now.Add(2 * time.Hour).UnixMilli()

	penalty, applicable := SignalPenalty(anchor, 0, s.now, s.params)

	s.True(applicable)
	s.Zero(penalty)
}

func (s *DecaySuite) TestPenalty_EdgeCases_Monotonicity() {
	prev := 0.0
	for hours := 0.0; hours <= 1200; hours += 12 {
		p := Penalty(hours, s.params)
		s.GreaterOrEqual(p, prev, "penalty must never decrease as time passes")
		prev = p
	}
}
