package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/revittco/galaxystats/internal/store"
)

const (
	defaultRunLimit   = 20
	defaultFetchLimit = 50
	maxLimit          = 500
)

type historyHandler struct {
	runs    store.RunStore
	fetches store.FetchRecordStore
}

func (h *historyHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultRunLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	runs, err := h.runs.ListRuns(r.Context(), min(limit, maxLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *historyHandler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type fetchListResponse struct {
	Data  []store.FetchRecord `json:"data"`
	Total int                 `json:"total"`
}

func (h *historyHandler) queryFetches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.FetchFilter
	if v := q.Get("run_id"); v != "" {
		f.RunID = &v
	}
	if v := q.Get("key"); v != "" {
		f.Key = &v
	}
	if v := q.Get("outcome"); v != "" {
		f.Outcome = &v
	}
	after, before, ok := parseWindow(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid time window")
		return
	}
	if !after.IsZero() {
		f.After = &after
	}
	if !before.IsZero() {
		f.Before = &before
	}
	limit, ok1 := queryInt(r, "limit", defaultFetchLimit)
	offset, ok2 := queryInt(r, "offset", 0)
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid limit or offset")
		return
	}
	f.Limit = min(limit, maxLimit)
	f.Offset = offset

	records, total, err := h.fetches.QueryFetchRecords(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query fetches")
		return
	}
	if records == nil {
		records = []store.FetchRecord{}
	}
	writeJSON(w, http.StatusOK, fetchListResponse{Data: records, Total: total})
}

// fetchStats aggregates over ?after=&before= (RFC 3339), defaulting to
// the last 24 hours.
func (h *historyHandler) fetchStats(w http.ResponseWriter, r *http.Request) {
	after, before, ok := parseWindow(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid time window")
		return
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	if after.IsZero() {
		after = before.Add(-24 * time.Hour)
	}
	stats, err := h.fetches.GetFetchStats(r.Context(), after, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseWindow(r *http.Request) (after, before time.Time, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"after", &after}, {"before", &before}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		*p.dst = t.UTC()
	}
	return after, before, true
}
