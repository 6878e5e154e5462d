package audit

import (
	"sync"

	"github.com/revittco/galaxystats/internal/store"
)

// Event types.
const (
	EventFetch = "fetch"
	EventRun   = "run"
)

// Event is one history entry published to live subscribers. Exactly one
// of Fetch and Run is set.
type Event struct {
	Type  string             `json:"type"`
	Fetch *store.FetchRecord `json:"fetch,omitempty"`
	Run   *store.RunRecord   `json:"run,omitempty"`
}

// Bus fans out history events to SSE subscribers in real time.
type Bus struct {
	mu   sync.RWMutex
	subs map[<-chan Event]chan Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[<-chan Event]chan Event),
	}
}

// Subscribe registers a new listener and returns a receive-only channel.
// The caller must call Unsubscribe when done.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	if send, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(send)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers without blocking.
// Slow consumers miss events.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the number of active listeners.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
