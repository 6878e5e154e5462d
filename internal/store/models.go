package store

import "time"

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// FetchRecord is one Fetch call: a cache hit or a network attempt.
type FetchRecord struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id,omitempty"`
	Key        string    `json:"key"`
	Outcome    string    `json:"outcome"` // "hit", "success" or "error"
	ErrorKind  string    `json:"error_kind,omitempty"`
	ErrorMsg   string    `json:"error_message,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Bytes      int       `json:"bytes"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// FetchFilter narrows QueryFetchRecords. Nil fields match everything.
type FetchFilter struct {
	RunID   *string
	Key     *string
	Outcome *string
	After   *time.Time
	Before  *time.Time
	Limit   int
	Offset  int
}

// FetchStats aggregates fetch records over a time window.
type FetchStats struct {
	Total        int     `json:"total"`
	Hits         int     `json:"hits"`
	Successes    int     `json:"successes"`
	Errors       int     `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	Bytes        int64   `json:"bytes"`
}

// RunRecord is one aggregation run.
type RunRecord struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Bytes      int64      `json:"bytes"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
