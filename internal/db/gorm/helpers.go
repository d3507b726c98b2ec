package gorm

import (
	"database/sql"

	"github.com/goccy/go-json"

	"github.com/pipeboard/dealpulse/pkg/models"
)

// toModelDeal converts a gorm record to the domain model.
func toModelDeal(r *DealRecord) *models.Deal {
	d := &models.Deal{
		ID:                    r.ID,
		RepID:                 r.RepID,
		Status:                models.DealStatus(r.Status),
		Stage:                 models.Stage(r.Stage.String),
		PredictedTier:         r.PredictedTier.String,
		ArchiveReason:         r.ArchiveReason.String,
		CreatedAtEpoch:        r.CreatedAtEpoch,
		SentAtEpoch:           r.SentAt.Int64,
		ArchivedAtEpoch:       r.ArchivedAt.Int64,
		ProposalSentAtEpoch:   r.ProposalSentAt.Int64,
		ProposalViewedAtEpoch: r.ProposalViewAt.Int64,
		EmailOpenedAtEpoch:    r.EmailOpenedAt.Int64,
		LastScoredAtEpoch:     r.LastScoredAt.Int64,
		MonthlyValue:          r.MonthlyValue,
		OneTimeValue:          r.OneTimeValue,
	}
	if r.CurrentScore.Valid {
		score := r.CurrentScore.Float64
		d.CurrentScore = &score
	}
	return d
}

// toDealRecord converts a domain deal to its gorm record.
func toDealRecord(d *models.Deal) *DealRecord {
	r := &DealRecord{
		ID:             d.ID,
		RepID:          d.RepID,
		Status:         string(d.Status),
		Stage:          nullString(string(d.Stage)),
		PredictedTier:  nullString(d.PredictedTier),
		ArchiveReason:  nullString(d.ArchiveReason),
		CreatedAtEpoch: d.CreatedAtEpoch,
		SentAt:         nullInt64(d.SentAtEpoch),
		ArchivedAt:     nullInt64(d.ArchivedAtEpoch),
		ProposalSentAt: nullInt64(d.ProposalSentAtEpoch),
		ProposalViewAt: nullInt64(d.ProposalViewedAtEpoch),
		EmailOpenedAt:  nullInt64(d.EmailOpenedAtEpoch),
		LastScoredAt:   nullInt64(d.LastScoredAtEpoch),
		MonthlyValue:   d.MonthlyValue,
		OneTimeValue:   d.OneTimeValue,
	}
	if d.CurrentScore != nil {
		r.CurrentScore = sql.NullFloat64{Float64: *d.CurrentScore, Valid: true}
	}
	return r
}

// toModelEvent converts a gorm event record to the domain model.
func toModelEvent(r *CommunicationEventRecord) *models.CommunicationEvent {
	return &models.CommunicationEvent{
		ID:              r.ID,
		DealID:          r.DealID,
		Direction:       models.EventDirection(r.Direction),
		Channel:         models.EventChannel(r.Channel),
		Source:          models.EventSource(r.Source),
		DedupKey:        r.DedupKey.String,
		OccurredAtEpoch: r.OccurredAt,
	}
}

// toModelHistory converts a history record, decoding the breakdown JSON.
// A corrupt breakdown column degrades to an empty map rather than failing
// the read.
func toModelHistory(r *ScoreHistoryRecord) *models.ScoreHistoryEntry {
	entry := &models.ScoreHistoryEntry{
		ID:              r.ID,
		DealID:          r.DealID,
		Score:           r.Score,
		Stage:           models.Stage(r.Stage),
		Reason:          r.Reason,
		ComputedAtEpoch: r.ComputedAt,
		Breakdown:       map[string]float64{},
	}
	if r.Breakdown != "" {
		_ = json.Unmarshal([]byte(r.Breakdown), &entry.Breakdown)
	}
	return entry
}

// encodeBreakdown serializes a breakdown map for the history table.
func encodeBreakdown(b map[string]float64) (string, error) {
	if len(b) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
