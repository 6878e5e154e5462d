// Package aggregate runs the fixed sequence of API fetches behind the
// galaxy report and prints the result.
package aggregate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/revittco/galaxystats/internal/audit"
	"github.com/revittco/galaxystats/internal/metrics"
	"github.com/revittco/galaxystats/internal/swapi"
)

// MaxVehicleID is the highest character id that also gets a featured
// vehicle fetched.
const MaxVehicleID = 4

// Planet thresholds for the "large populated" listing.
const (
	minPopulation = 1_000_000_000
	minDiameter   = 10_000
)

// shownStarships is how many starships get a detail block.
const shownStarships = 3

// Fetcher retrieves a parsed resource by key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (swapi.Payload, error)
}

// RunRecorder is notified when runs start and finish.
type RunRecorder interface {
	RunStarted(ctx context.Context, runID string)
	RunFinished(ctx context.Context, runID string, bytes int64, err error)
}

// Config configures a Driver.
type Config struct {
	// Character (and vehicle) id to report on. Defaults to 1.
	CharacterID int
	// Print the stats block after each run.
	Debug bool
	// Destination of the printed report. os.Stdout if nil.
	Out io.Writer
	// Number of cached resources, for the stats block. Optional.
	CacheSize func() int
	// Logger to use. slog.Default() if nil.
	Logger *slog.Logger
	// Optional run history sink.
	Recorder RunRecorder
}

// Driver orchestrates aggregation runs. Runs may overlap; each one's
// printed report is written in a single piece.
type Driver struct {
	fetcher  Fetcher
	counters *metrics.Counters
	cfg      Config
	log      *slog.Logger

	outMu sync.Mutex
	wg    sync.WaitGroup
}

// NewDriver creates a Driver that fetches through f and tallies payload
// bytes into m.
func NewDriver(f Fetcher, m *metrics.Counters, cfg Config) *Driver {
	if cfg.CharacterID <= 0 {
		cfg.CharacterID = 1
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		fetcher:  f,
		counters: m,
		cfg:      cfg,
		log:      logger.With("component", "aggregate"),
	}
}

// Trigger starts a run in the background and returns its id without
// waiting for it. ctx bounds the run, so it should outlive the caller's
// request.
func (d *Driver) Trigger(ctx context.Context) string {
	id := uuid.NewString()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_, _ = d.run(ctx, id)
	}()
	return id
}

// Wait blocks until every triggered run has finished.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// Run performs one aggregation run synchronously. The returned report
// holds every section collected before a failure.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	return d.run(ctx, uuid.NewString())
}

func (d *Driver) run(ctx context.Context, id string) (*Report, error) {
	ctx = audit.WithRunID(ctx, id)
	log := d.log.With("run_id", id)
	log.Debug("starting data fetch")
	if d.cfg.Recorder != nil {
		d.cfg.Recorder.RunStarted(ctx, id)
	}

	c := &collector{d: d, ctx: ctx}
	report := &Report{RunID: id}
	err := c.collect(report)

	// stats only follow a complete run
	if d.cfg.Debug && err == nil {
		snap := d.counters.Snapshot()
		report.Stats = &RunStats{
			APICalls:  snap.RequestsAttempted,
			DataSize:  snap.CumulativeBytes,
			Errors:    snap.ErrorCount,
			CacheSize: d.cacheSize(),
		}
	}
	d.print(report)

	if d.cfg.Recorder != nil {
		d.cfg.Recorder.RunFinished(ctx, id, c.tallied, err)
	}
	if err != nil {
		log.Error("aggregation run failed", "error", err, "bytes", c.tallied)
		return report, err
	}
	log.Debug("aggregation run finished", "bytes", c.tallied)
	return report, nil
}

func (d *Driver) cacheSize() int {
	if d.cfg.CacheSize == nil {
		return 0
	}
	return d.cfg.CacheSize()
}

func (d *Driver) print(r *Report) {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		d.log.Error("failed to format report", "error", err)
		return
	}
	d.outMu.Lock()
	defer d.outMu.Unlock()
	if _, err := d.cfg.Out.Write(buf.Bytes()); err != nil {
		d.log.Error("failed to write report", "error", err)
	}
}

// collector holds the state of a single run.
type collector struct {
	d       *Driver
	ctx     context.Context
	tallied int64
}

// collect fetches each resource in order and stops at the first failure.
func (c *collector) collect(r *Report) error {
	id := c.d.cfg.CharacterID

	character, err := fetchAs[swapi.Character](c, "people/"+strconv.Itoa(id))
	if err != nil {
		return err
	}
	r.Character = &character

	starships, err := fetchAs[swapi.Page[swapi.Starship]](c, "starships/?page=1")
	if err != nil {
		return err
	}
	r.Starships = &StarshipSummary{
		Total: starships.Count,
		Top:   starships.Results[:min(shownStarships, len(starships.Results))],
	}

	planets, err := fetchAs[swapi.Page[swapi.Planet]](c, "planets/?page=1")
	if err != nil {
		return err
	}
	large := LargePlanets(planets.Results)
	r.LargePlanets = &large

	films, err := fetchAs[swapi.Page[swapi.Film]](c, "films/")
	if err != nil {
		return err
	}
	sorted := SortFilms(films.Results)
	r.Films = &sorted

	if id <= MaxVehicleID {
		vehicle, err := fetchAs[swapi.Vehicle](c, "vehicles/"+strconv.Itoa(id))
		if err != nil {
			return err
		}
		r.Vehicle = &vehicle
	}
	return nil
}

// fetchAs fetches key, tallies its payload size and decodes it into T.
func fetchAs[T any](c *collector, key string) (T, error) {
	var v T
	p, err := c.d.fetcher.Fetch(c.ctx, key)
	if err != nil {
		return v, err
	}
	c.d.counters.AddBytes(p.Size())
	c.tallied += int64(p.Size())
	if err := p.Decode(&v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
