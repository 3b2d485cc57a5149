package models

import "time"

// Request outcomes recorded in the visualization history log.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeDenied     = "denied"
	OutcomeSuperseded = "superseded"
)

// HistoryEntry records the outcome of one visualization request.
type HistoryEntry struct {
	RequestID string    `json:"request_id"`
	ImageHash string    `json:"image_hash"`
	Color     string    `json:"color"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Cached    bool      `json:"cached"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryQueryOpts filters history queries.
type HistoryQueryOpts struct {
	ImageHash string
	Outcome   string
	Since     time.Time
	Limit     int
}

// HistoryStat aggregates request counts per outcome and day.
type HistoryStat struct {
	Outcome string `json:"outcome"`
	Day     string `json:"day"`
	Count   int64  `json:"count"`
}
