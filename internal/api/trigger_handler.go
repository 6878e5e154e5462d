package api

import (
	"context"
	"log/slog"
	"net/http"
)

type triggerHandler struct {
	driver  Trigger
	baseCtx context.Context
}

// trigger starts a run and answers right away. The run outlives the
// request; its report goes to the server console.
func (h *triggerHandler) trigger(w http.ResponseWriter, r *http.Request) {
	if h.driver == nil {
		writeText(w, http.StatusServiceUnavailable, "Aggregation unavailable")
		return
	}
	id := h.driver.Trigger(h.baseCtx)
	slog.Debug("run triggered", "run_id", id, "request_id", requestIDFrom(r.Context()))
	w.Header().Set("X-Run-ID", id)
	writeText(w, http.StatusOK, "Check server console for results")
}
