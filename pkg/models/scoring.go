package models

import "time"

// Signal names used as breakdown keys. The breakdown of a score history
// entry maps each applicable signal to the penalty it contributed.
const (
	SignalSilence      = "communication_silence"
	SignalEmailOpen    = "email_not_opened"
	SignalProposalView = "proposal_not_viewed"
)

// Trigger reason codes recorded on score history entries.
const (
	ReasonCommunicationSync = "communication_sync"
	ReasonStaleSweep        = "stale_sweep"
	ReasonManual            = "manual"
)

// SignalParams holds the decay parameters for one signal category.
type SignalParams struct {
	// GraceHours is the window after the anchor event during which no
	// penalty accrues.
	GraceHours float64 `json:"grace_hours" yaml:"grace_hours"`
	// DailyRate is the points of penalty accrued per day past the grace
	// period.
	DailyRate float64 `json:"daily_rate" yaml:"daily_rate"`
	// MaxPenalty caps the total penalty for the signal.
	MaxPenalty float64 `json:"max_penalty" yaml:"max_penalty"`
}

// StageThreshold maps a minimum score to a stage label. Thresholds are
// evaluated in descending order of MinScore.
type StageThreshold struct {
	Stage    Stage   `json:"stage" yaml:"stage"`
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// ScoringConfig consolidates every scoring parameter into one injectable
// structure so the calculator stays free of magic numbers and tests can
// override thresholds deterministically.
type ScoringConfig struct {
	Silence      SignalParams `json:"silence" yaml:"silence"`
	EmailOpen    SignalParams `json:"email_open" yaml:"email_open"`
	ProposalView SignalParams `json:"proposal_view" yaml:"proposal_view"`

	// Stages maps score ranges to stage labels, ordered by MinScore
	// descending.
	Stages []StageThreshold `json:"stages" yaml:"stages"`

	// BaseScore is the starting score before penalties are subtracted.
	BaseScore float64 `json:"base_score" yaml:"base_score"`

	// StaleAfter is the freshness threshold for the sweeper: deals whose
	// last score is older than this are recalculated even without new
	// events.
	StaleAfter time.Duration `json:"stale_after" yaml:"stale_after"`
}

// DefaultScoringConfig returns the documented contract values: silence
// 5d grace / 3 pt-day / cap 80, email-open 24h grace / 2.5 pt-day / cap 35,
// proposal-view 48h grace / 2 pt-day / cap 25, 23h staleness.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		Silence:      SignalParams{GraceHours: 120, DailyRate: 3.0, MaxPenalty: 80},
		EmailOpen:    SignalParams{GraceHours: 24, DailyRate: 2.5, MaxPenalty: 35},
		ProposalView: SignalParams{GraceHours: 48, DailyRate: 2.0, MaxPenalty: 25},
		Stages: []StageThreshold{
			{Stage: StageThriving, MinScore: 80},
			{Stage: StageHealthy, MinScore: 60},
			{Stage: StageNeedsAttention, MinScore: 40},
			{Stage: StageAtRisk, MinScore: 20},
			{Stage: StageCritical, MinScore: 0},
		},
		BaseScore:  100,
		StaleAfter: 23 * time.Hour,
	}
}

// StageFor maps a clamped score to its stage label.
func (c *ScoringConfig) StageFor(score float64) Stage {
	for _, t := range c.Stages {
		if score >= t.MinScore {
			return t.Stage
		}
	}
	return StageCritical
}

// ScoreResult is the output of one scoring computation.
type ScoreResult struct {
	// Breakdown maps signal names to the penalty each applied.
	// Inapplicable signals (no anchor event) are excluded entirely.
	Breakdown map[string]float64 `json:"breakdown"`
	Stage     Stage              `json:"stage"`
	Score     float64            `json:"score"`
}

// ScoreHistoryEntry is an immutable audit record of one scoring
// computation. History is append-only; the most recent entry per deal by
// timestamp defines the deal's current score.
type ScoreHistoryEntry struct {
	Breakdown       map[string]float64 `json:"breakdown"`
	Reason          string             `json:"reason"`
	Stage           Stage              `json:"stage"`
	ID              int64              `json:"id"`
	DealID          int64              `json:"deal_id"`
	Score           float64            `json:"score"`
	ComputedAtEpoch int64              `json:"computed_at_epoch"`
}
