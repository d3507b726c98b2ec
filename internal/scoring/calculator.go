package scoring

import (
	"time"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// Calculator computes health scores for deals.
//
// The calculator is pure: identical inputs (deal, event set, evaluation
// instant) always yield identical output, and no I/O happens here.
type Calculator struct {
	config *models.ScoringConfig
}

// NewCalculator creates a new scoring calculator.
// If config is nil, uses the default configuration.
func NewCalculator(config *models.ScoringConfig) *Calculator {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Calculator{config: config}
}

// Calculate computes the health score for a deal at the given time.
//
// Starting from the base score (100), each applicable signal subtracts its
// decay penalty; the result is clamped to [0, 100] and mapped to a stage
// via the configured thresholds. Signals whose anchor event never occurred
// contribute nothing and are omitted from the breakdown.
func (c *Calculator) Calculate(deal *models.Deal, events []*models.CommunicationEvent, now time.Time) models.ScoreResult {
	anchors := deriveAnchors(deal, events)
	breakdown := make(map[string]float64, 3)

	score := c.config.BaseScore

	if p, ok := SignalPenalty(anchors.silenceAnchor, anchors.silenceReset, now, c.config.Silence); ok {
		breakdown[models.SignalSilence] = p
		score -= p
	}
	if p, ok := SignalPenalty(anchors.emailAnchor, anchors.emailReset, now, c.config.EmailOpen); ok {
		breakdown[models.SignalEmailOpen] = p
		score -= p
	}
	if p, ok := SignalPenalty(deal.ProposalSentAtEpoch, deal.ProposalViewedAtEpoch, now, c.config.ProposalView); ok {
		breakdown[models.SignalProposalView] = p
		score -= p
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return models.ScoreResult{
		Score:     score,
		Stage:     c.config.StageFor(score),
		Breakdown: breakdown,
	}
}

// Config returns the current scoring configuration.
func (c *Calculator) Config() *models.ScoringConfig {
	return c.config
}

// signalAnchors holds the per-signal anchor and reset timestamps derived
// from a deal's communication history.
type signalAnchors struct {
	silenceAnchor int64
	silenceReset  int64
	emailAnchor   int64
	emailReset    int64
}

// deriveAnchors scans the deal's events for the most recent relevant
// timestamps per signal.
//
// Silence is anchored at the last inbound contact on any channel, falling
// back to the deal's sent time when the client never replied; it has no
// reset because every inbound contact moves the anchor itself.
//
// Email-open is anchored at the last outbound email. A reply (inbound
// email event) or a provider-reported open (EmailOpenedAtEpoch on the
// deal) at or after that anchor resets the signal.
func deriveAnchors(deal *models.Deal, events []*models.CommunicationEvent) signalAnchors {
	var a signalAnchors

	for _, ev := range events {
		switch ev.Direction {
		case models.DirectionInbound:
			if ev.OccurredAtEpoch > a.silenceAnchor {
				a.silenceAnchor = ev.OccurredAtEpoch
			}
			if ev.Channel == models.ChannelEmail && ev.OccurredAtEpoch > a.emailReset {
				a.emailReset = ev.OccurredAtEpoch
			}
		case models.DirectionOutbound:
			if ev.Channel == models.ChannelEmail && ev.OccurredAtEpoch > a.emailAnchor {
				a.emailAnchor = ev.OccurredAtEpoch
			}
		}
	}

	if deal.EmailOpenedAtEpoch > a.emailReset {
		a.emailReset = deal.EmailOpenedAtEpoch
	}
	if a.silenceAnchor == 0 {
		a.silenceAnchor = deal.SentAtEpoch
	}

	return a
}
