// Package api serves the browser page, the run trigger and the JSON
// status endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revittco/galaxystats/internal/audit"
	"github.com/revittco/galaxystats/internal/cache"
	"github.com/revittco/galaxystats/internal/metrics"
	"github.com/revittco/galaxystats/internal/store"
)

// Version is reported by /health.
const Version = "0.1.0"

// Trigger starts an aggregation run without waiting for it.
type Trigger interface {
	Trigger(ctx context.Context) string
}

// CacheInspector is the read-only view of the payload cache.
type CacheInspector interface {
	Len() int
	Keys() []string
	Stats() cache.Stats
}

// RouterDeps holds the dependencies needed by the HTTP router.
type RouterDeps struct {
	Driver   Trigger
	Counters *metrics.Counters
	Cache    CacheInspector
	Debug    bool
	Timeout  time.Duration
	// Runs started from /api derive from BaseCtx, not the request.
	// context.Background() if nil.
	BaseCtx  context.Context
	Gatherer prometheus.Gatherer // optional; enables /metrics
	Events   *audit.Bus          // optional; enables /events
	History  store.Store         // optional; enables /runs and /fetches
}

// NewRouter creates an http.Handler with all routes.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.BaseCtx == nil {
		deps.BaseCtx = context.Background()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)

	st := &statsHandler{counters: deps.Counters, cache: deps.Cache, debug: deps.Debug, timeout: deps.Timeout}
	r.HandleFunc("/", st.page)
	r.HandleFunc("/index.html", st.page)
	r.HandleFunc("/stats", st.stats)

	tr := &triggerHandler{driver: deps.Driver, baseCtx: deps.BaseCtx}
	r.HandleFunc("/api", tr.trigger)

	ch := &cacheHandler{cache: deps.Cache}
	r.Get("/cache", ch.stats)

	r.Get("/health", healthCheck)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Events != nil {
		ev := &eventsHandler{bus: deps.Events}
		r.Get("/events", ev.stream)
	}

	if deps.History != nil {
		hh := &historyHandler{runs: deps.History, fetches: deps.History}
		r.Get("/runs", hh.listRuns)
		r.Get("/runs/{id}", hh.getRun)
		r.Get("/fetches", hh.queryFetches)
		r.Get("/fetches/stats", hh.fetchStats)
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, "Not Found")
}
