package audit

import (
	"testing"

	"github.com/revittco/galaxystats/internal/store"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()
	if b.Subscribers() != 2 {
		t.Fatalf("subscribers = %d", b.Subscribers())
	}

	b.Publish(Event{Type: EventFetch, Fetch: &store.FetchRecord{Key: "films/"}})

	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.Fetch == nil || ev.Fetch.Key != "films/" {
			t.Fatalf("event = %+v", ev)
		}
	}

	b.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatal("unsubscribed channel should be closed")
	}
	b.Unsubscribe(a) // second call is a no-op
	b.Unsubscribe(c)
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", b.Subscribers())
	}
}

func TestBus_SlowConsumerDoesNotBlock(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for range 100 {
		b.Publish(Event{Type: EventRun, Run: &store.RunRecord{ID: "r"}})
	}
	if got := len(ch); got != 64 {
		t.Fatalf("buffered = %d; want 64, the rest dropped", got)
	}
}
