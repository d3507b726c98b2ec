package models

// RequestStatus is the processing state of a queued recalculation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestSucceeded RequestStatus = "succeeded"
	RequestFailed    RequestStatus = "failed"
	RequestSkipped   RequestStatus = "skipped"
)

// RecalcRequest is one pending unit of recalculation work, produced by
// data-mutation side effects elsewhere in the system. At most one pending
// request per deal is kept; duplicate enqueues coalesce.
type RecalcRequest struct {
	Reason          string        `json:"reason"`
	Status          RequestStatus `json:"status"`
	Error           string        `json:"error,omitempty"`
	ID              int64         `json:"id"`
	DealID          int64         `json:"deal_id"`
	EnqueuedAtEpoch int64         `json:"enqueued_at_epoch"`
}

// BatchCounts aggregates one batch pass (queue drain or stale sweep).
type BatchCounts struct {
	Processed  int   `json:"processed"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	DurationMS int64 `json:"duration_ms"`
}

// BatchReport is the combined result of one daily orchestrator run.
type BatchReport struct {
	Queue           BatchCounts `json:"queue_results"`
	Stale           BatchCounts `json:"stale_results"`
	TotalDurationMS int64       `json:"total_duration_ms"`
}
