package store

import (
	"context"
	"time"
)

// Store is the composite interface for the fetch history.
type Store interface {
	FetchRecordStore
	RunStore
	Ping(ctx context.Context) error
	Close() error
}

// FetchRecordStore manages per-fetch history records.
type FetchRecordStore interface {
	InsertFetchRecord(ctx context.Context, r *FetchRecord) error
	QueryFetchRecords(ctx context.Context, f FetchFilter) ([]FetchRecord, int, error)
	GetFetchStats(ctx context.Context, after, before time.Time) (*FetchStats, error)
}

// RunStore manages aggregation run records.
type RunStore interface {
	CreateRun(ctx context.Context, r *RunRecord) error
	FinishRun(ctx context.Context, id, status, errMsg string, bytes int64) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
