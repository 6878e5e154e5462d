package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/revittco/galaxystats/internal/aggregate"
	"github.com/revittco/galaxystats/internal/audit"
	"github.com/revittco/galaxystats/internal/cache"
	"github.com/revittco/galaxystats/internal/config"
	"github.com/revittco/galaxystats/internal/metrics"
	"github.com/revittco/galaxystats/internal/store/sqlite"
	"github.com/revittco/galaxystats/internal/swapi"
)

// app wires the components shared by serve and fetch.
type app struct {
	settings config.Settings
	registry *prometheus.Registry
	counters *metrics.Counters
	cache    *cache.Cache[string, swapi.Payload]
	client   *swapi.Client
	driver   *aggregate.Driver
	events   *audit.Bus
	history  *sqlite.DB // nil when disabled
}

func newApp(ctx context.Context, s config.Settings, out io.Writer, logger *slog.Logger) (*app, error) {
	a := &app{
		settings: s,
		registry: prometheus.NewRegistry(),
		cache:    cache.New[string, swapi.Payload](),
		events:   audit.NewBus(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.counters = metrics.New(a.registry)
	metrics.RegisterCacheSize(a.registry, a.cache.Len)

	clientCfg := swapi.Config{
		BaseURL:            s.BaseURL,
		Timeout:            s.Timeout,
		InsecureSkipVerify: s.InsecureSkipVerify,
		Coalesce:           s.Coalesce,
		Logger:             logger,
	}
	driverCfg := aggregate.Config{
		CharacterID: s.CharacterID,
		Debug:       s.Debug,
		Out:         out,
		CacheSize:   a.cache.Len,
		Logger:      logger,
	}

	auditor := audit.NewLogger(nil, nil, a.events, logger)
	if s.HistoryDSN != "" {
		db, err := sqlite.New(ctx, s.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.history = db
		auditor = audit.NewLogger(db, db, a.events, logger)
		logger.Info("fetch history enabled", "dsn", s.HistoryDSN)
	}
	clientCfg.Recorder = auditor
	driverCfg.Recorder = auditor

	a.client = swapi.NewClient(clientCfg, a.cache, a.counters)
	a.driver = aggregate.NewDriver(a.client, a.counters, driverCfg)
	return a, nil
}

// Close waits for in-flight runs and releases the history store.
func (a *app) Close() error {
	a.driver.Wait()
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
