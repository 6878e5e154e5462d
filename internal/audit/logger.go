// Package audit keeps a history of fetches and aggregation runs and
// streams it to live subscribers.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/revittco/galaxystats/internal/store"
	"github.com/revittco/galaxystats/internal/swapi"
)

type runIDKey struct{}

// WithRunID tags ctx with the aggregation run it belongs to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Logger writes fetch and run records to the history store and the bus.
// Either may be nil. Store failures are logged and never reach the caller.
type Logger struct {
	fetches store.FetchRecordStore
	runs    store.RunStore
	bus     *Bus
	log     *slog.Logger

	mu      sync.Mutex
	started map[string]time.Time
}

// NewLogger creates an audit Logger. logger may be nil.
func NewLogger(fetches store.FetchRecordStore, runs store.RunStore, bus *Bus, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		fetches: fetches,
		runs:    runs,
		bus:     bus,
		log:     logger,
		started: make(map[string]time.Time),
	}
}

// RecordFetch implements swapi.Recorder.
func (l *Logger) RecordFetch(ctx context.Context, ev swapi.FetchEvent) {
	rec := &store.FetchRecord{
		RunID:      RunIDFrom(ctx),
		Key:        ev.Key,
		Outcome:    ev.Outcome,
		ErrorKind:  ev.ErrorKind,
		StatusCode: ev.StatusCode,
		Bytes:      ev.Bytes,
		LatencyMs:  ev.Latency.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if ev.Err != nil {
		rec.ErrorMsg = ev.Err.Error()
	}
	if l.fetches != nil {
		// the fetch context may already be cancelled
		if err := l.fetches.InsertFetchRecord(context.WithoutCancel(ctx), rec); err != nil {
			l.log.Warn("failed to record fetch", "key", ev.Key, "error", err)
		}
	}
	if l.bus != nil {
		l.bus.Publish(Event{Type: EventFetch, Fetch: rec})
	}
}

// RunStarted records a new running aggregation run.
func (l *Logger) RunStarted(ctx context.Context, runID string) {
	rec := &store.RunRecord{ID: runID, Status: store.RunRunning, StartedAt: time.Now().UTC()}
	l.mu.Lock()
	l.started[runID] = rec.StartedAt
	l.mu.Unlock()

	if l.runs != nil {
		if err := l.runs.CreateRun(ctx, rec); err != nil {
			l.log.Warn("failed to record run start", "run_id", runID, "error", err)
		}
	}
	if l.bus != nil {
		l.bus.Publish(Event{Type: EventRun, Run: rec})
	}
}

// RunFinished closes a run with its outcome and the bytes it tallied.
func (l *Logger) RunFinished(ctx context.Context, runID string, bytes int64, runErr error) {
	now := time.Now().UTC()
	rec := &store.RunRecord{ID: runID, Status: store.RunSuccess, Bytes: bytes, FinishedAt: &now}
	if runErr != nil {
		rec.Status, rec.Error = store.RunError, runErr.Error()
	}
	l.mu.Lock()
	rec.StartedAt = l.started[runID]
	delete(l.started, runID)
	l.mu.Unlock()

	if l.runs != nil {
		err := l.runs.FinishRun(context.WithoutCancel(ctx), runID, rec.Status, rec.Error, bytes)
		if err != nil {
			l.log.Warn("failed to record run finish", "run_id", runID, "error", err)
		}
	}
	if l.bus != nil {
		l.bus.Publish(Event{Type: EventRun, Run: rec})
	}
}
