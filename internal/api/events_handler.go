package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/revittco/galaxystats/internal/audit"
)

const heartbeatInterval = 15 * time.Second

type eventsHandler struct {
	bus *audit.Bus
}

// stream sends fetch and run events as server-sent events. Optional
// ?type= and ?run_id= narrow the stream.
func (h *eventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	qType := r.URL.Query().Get("type")
	qRun := r.URL.Query().Get("run_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}
	// streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if !matchFilter(ev.Type, qType) || !matchFilter(eventRunID(ev), qRun) {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			if err := rc.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ":\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func eventRunID(ev audit.Event) string {
	switch {
	case ev.Fetch != nil:
		return ev.Fetch.RunID
	case ev.Run != nil:
		return ev.Run.ID
	}
	return ""
}

// matchFilter returns true if the filter is empty or matches the value.
func matchFilter(value, filter string) bool {
	return filter == "" || value == filter
}
