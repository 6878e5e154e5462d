package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/revittco/galaxystats/internal/store"
	"github.com/revittco/galaxystats/internal/store/sqlite"
	"github.com/revittco/galaxystats/internal/swapi"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(context.Background(), t.TempDir()+"/audit.db")
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RunIDFrom(ctx); got != "" {
		t.Fatalf("RunIDFrom(empty) = %q", got)
	}
	if got := RunIDFrom(WithRunID(ctx, "run-1")); got != "run-1" {
		t.Fatalf("RunIDFrom = %q; want run-1", got)
	}
}

func TestLogger_RecordFetch(t *testing.T) {
	db := newTestDB(t)
	l := NewLogger(db, db, nil, nil)

	ctx, cancel := context.WithCancel(WithRunID(context.Background(), "run-1"))
	cancel() // records still land after the fetch context is gone

	l.RecordFetch(ctx, swapi.FetchEvent{
		Key:        "people/9999",
		Outcome:    swapi.OutcomeError,
		ErrorKind:  "status",
		Err:        &swapi.StatusError{Key: "people/9999", Code: 404},
		StatusCode: 404,
		Latency:    15 * time.Millisecond,
	})

	recs, total, err := db.QueryFetchRecords(context.Background(), store.FetchFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d; want 1", total)
	}
	r := recs[0]
	if r.RunID != "run-1" || r.Key != "people/9999" || r.Outcome != "error" || r.LatencyMs != 15 {
		t.Fatalf("record = %+v", r)
	}
	if r.ErrorMsg == "" {
		t.Fatal("expected error message")
	}
}

func TestLogger_RunLifecycle(t *testing.T) {
	db := newTestDB(t)
	l := NewLogger(db, db, nil, nil)
	ctx := context.Background()

	l.RunStarted(ctx, "ok")
	l.RunFinished(ctx, "ok", 2048, nil)
	l.RunStarted(ctx, "bad")
	l.RunFinished(ctx, "bad", 10, errors.New("fetch films/: boom"))

	ok, err := db.GetRun(ctx, "ok")
	if err != nil {
		t.Fatalf("get ok: %v", err)
	}
	if ok.Status != store.RunSuccess || ok.Bytes != 2048 {
		t.Fatalf("ok run = %+v", ok)
	}
	bad, err := db.GetRun(ctx, "bad")
	if err != nil {
		t.Fatalf("get bad: %v", err)
	}
	if bad.Status != store.RunError || bad.Error != "fetch films/: boom" {
		t.Fatalf("bad run = %+v", bad)
	}
}

func TestLogger_PublishesWithoutStore(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	l := NewLogger(nil, nil, bus, nil)
	ctx := WithRunID(context.Background(), "run-2")

	l.RunStarted(ctx, "run-2")
	l.RecordFetch(ctx, swapi.FetchEvent{Key: "films/", Outcome: swapi.OutcomeHit, Bytes: 64})
	l.RunFinished(ctx, "run-2", 64, nil)

	start := <-ch
	if start.Type != EventRun || start.Run.Status != store.RunRunning {
		t.Fatalf("first event = %+v", start)
	}
	fetch := <-ch
	if fetch.Type != EventFetch || fetch.Fetch.RunID != "run-2" || fetch.Fetch.Bytes != 64 {
		t.Fatalf("second event = %+v", fetch)
	}
	done := <-ch
	if done.Run.Status != store.RunSuccess || done.Run.FinishedAt == nil {
		t.Fatalf("third event = %+v", done.Run)
	}
	if !done.Run.StartedAt.Equal(start.Run.StartedAt) {
		t.Fatalf("started_at %v != %v", done.Run.StartedAt, start.Run.StartedAt)
	}
}
