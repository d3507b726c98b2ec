package models

// ArchiveFilter narrows archive analytics to a date range and/or owning
// representative. Zero values mean "no filter".
type ArchiveFilter struct {
	RepID     string `json:"rep_id,omitempty"`
	FromEpoch int64  `json:"from_epoch,omitempty"`
	ToEpoch   int64  `json:"to_epoch,omitempty"`
}

// ReasonBreakdown is the per-archive-reason slice of an archive report.
type ReasonBreakdown struct {
	Reason           string  `json:"reason"`
	Count            int     `json:"count"`
	LostMonthlyValue float64 `json:"lost_monthly_value"`
	LostOneTimeValue float64 `json:"lost_one_time_value"`
	// Percentage is count/total*100 rounded to the nearest integer.
	// Percentages are computed independently per reason and may not sum
	// to exactly 100.
	Percentage int `json:"percentage"`
}

// ArchiveReport is the read-only aggregation over archived deals.
// Zero archived deals yields all-zero aggregates, an empty breakdown, and
// a nil top reason.
type ArchiveReport struct {
	TopReason        *ReasonBreakdown  `json:"top_reason"`
	Breakdown        []ReasonBreakdown `json:"breakdown"`
	TotalArchived    int               `json:"total_archived"`
	LostMonthlyValue float64           `json:"lost_monthly_value"`
	LostOneTimeValue float64           `json:"lost_one_time_value"`
	AvgDaysToArchive float64           `json:"avg_days_to_archive"`
}

// ArchiveAggregate is the raw per-reason row a storage backend returns for
// the analytics aggregation; percentage math happens in the analytics
// package, not in SQL.
type ArchiveAggregate struct {
	Reason           string  `json:"reason"`
	Count            int     `json:"count"`
	LostMonthlyValue float64 `json:"lost_monthly_value"`
	LostOneTimeValue float64 `json:"lost_one_time_value"`
	AvgDaysToArchive float64 `json:"avg_days_to_archive"`
}
