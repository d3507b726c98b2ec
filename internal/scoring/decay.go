// Package scoring provides deal health score calculation.
package scoring

import (
	"time"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// Penalty computes the time-decay penalty for one signal given the elapsed
// hours since the signal's anchor event:
//
//	penalty = min(cap, max(0, (elapsed_hours - grace_hours) / 24 * daily_rate))
//
// Negative elapsed time (clock skew) clamps to zero. The penalty is
// non-negative, zero within the grace period, and non-decreasing in elapsed
// time up to the cap.
func Penalty(elapsedHours float64, p models.SignalParams) float64 {
	if elapsedHours < 0 {
		elapsedHours = 0
	}
	penalty := (elapsedHours - p.GraceHours) / 24.0 * p.DailyRate
	if penalty < 0 {
		return 0
	}
	if penalty > p.MaxPenalty {
		return p.MaxPenalty
	}
	return penalty
}

// SignalPenalty evaluates one signal from its anchor and reset timestamps
// (epoch milliseconds, zero meaning absent) at the given instant.
//
// The anchor is the event that starts the clock (last contact, email sent,
// proposal sent). The reset is the most recent positive event for the
// signal (reply, open, view); a reset at or after the anchor zeroes the
// penalty permanently rather than granting a bonus.
//
// A missing anchor makes the signal inapplicable: it is excluded from the
// total, not treated as zero elapsed or max penalty.
func SignalPenalty(anchorEpoch, resetEpoch int64, now time.Time, p models.SignalParams) (penalty float64, applicable bool) {
	if anchorEpoch == 0 {
		return 0, false
	}
	if resetEpoch >= anchorEpoch && resetEpoch != 0 {
		return 0, true
	}
	elapsed := now.Sub(time.UnixMilli(anchorEpoch)).Hours()
	return Penalty(elapsed, p), true
}
