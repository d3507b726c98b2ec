// Package models contains domain models for dealpulse.
package models

import "time"

// DealStatus represents the lifecycle state of a deal.
type DealStatus string

const (
	// DealStatusDraft is a deal that has not been sent yet.
	DealStatusDraft DealStatus = "draft"
	// DealStatusSent is a deal whose proposal has been sent to the client.
	DealStatusSent DealStatus = "sent"
	// DealStatusDeclined is a deal the client explicitly declined.
	DealStatusDeclined DealStatus = "declined"
	// DealStatusAccepted is a won deal.
	DealStatusAccepted DealStatus = "accepted"
	// DealStatusArchived is a deal closed out with an archive reason.
	DealStatusArchived DealStatus = "archived"
)

// Terminal reports whether the deal is in a state where recalculation
// is meaningless (won, lost, or archived).
func (s DealStatus) Terminal() bool {
	return s == DealStatusAccepted || s == DealStatusDeclined || s == DealStatusArchived
}

// Stage is the categorical health label derived from the numeric score.
type Stage string

const (
	StageCritical       Stage = "critical"
	StageAtRisk         Stage = "at_risk"
	StageNeedsAttention Stage = "needs_attention"
	StageHealthy        Stage = "healthy"
	StageThriving       Stage = "thriving"
)

// Deal represents one sales opportunity tracked through the
// sent -> accepted/archived lifecycle.
//
// Timestamps are epoch milliseconds; zero means unset. CurrentScore is nil
// until the first recalculation has run.
type Deal struct {
	CurrentScore *float64   `json:"current_score"`
	RepID        string     `json:"rep_id"`
	Status       DealStatus `json:"status"`
	Stage        Stage      `json:"stage"`

	// PredictedTier is the sales-assigned tier used for sweep filtering.
	PredictedTier string `json:"predicted_tier,omitempty"`

	// ArchiveReason is set iff Status is archived.
	ArchiveReason string `json:"archive_reason,omitempty"`

	ID              int64 `json:"id"`
	CreatedAtEpoch  int64 `json:"created_at_epoch"`
	SentAtEpoch     int64 `json:"sent_at_epoch"`
	ArchivedAtEpoch int64 `json:"archived_at_epoch,omitempty"`

	// ProposalSentAtEpoch and ProposalViewedAtEpoch track the proposal
	// link delivery separately from the deal itself; both feed the
	// proposal-view signal.
	ProposalSentAtEpoch   int64 `json:"proposal_sent_at_epoch,omitempty"`
	ProposalViewedAtEpoch int64 `json:"proposal_viewed_at_epoch,omitempty"`

	// EmailOpenedAtEpoch is the latest tracking-pixel open reported by the
	// email provider. Opens are engagement pings, not inbound
	// communication: they reset the email-open signal without moving the
	// silence anchor.
	EmailOpenedAtEpoch int64 `json:"email_opened_at_epoch,omitempty"`

	// LastScoredAtEpoch mirrors the timestamp of the latest score history
	// entry; the stale sweeper selects on it.
	LastScoredAtEpoch int64 `json:"last_scored_at_epoch,omitempty"`

	// MonthlyValue and OneTimeValue are the recurring and one-time amounts
	// lost when the deal is archived.
	MonthlyValue float64 `json:"monthly_value"`
	OneTimeValue float64 `json:"one_time_value"`
}

// Archived reports whether the deal has been archived.
func (d *Deal) Archived() bool {
	return d.Status == DealStatusArchived
}

// LastScoredAt returns the last scoring time, or the zero time if the deal
// has never been scored.
func (d *Deal) LastScoredAt() time.Time {
	if d.LastScoredAtEpoch == 0 {
		return time.Time{}
	}
	return time.UnixMilli(d.LastScoredAtEpoch)
}
