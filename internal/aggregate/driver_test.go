package aggregate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/revittco/galaxystats/internal/cache"
	"github.com/revittco/galaxystats/internal/metrics"
	"github.com/revittco/galaxystats/internal/swapi"
)

var fixtures = map[string]string{
	"people/1": `{"name":"Luke Skywalker","height":"172","mass":"77","birth_year":"19BBY",
		"films":["f1","f2","f3","f6"]}`,
	"people/7": `{"name":"Beru Whitesun lars","height":"165","mass":"75","birth_year":"47BBY","films":[]}`,
	"starships/?page=1": `{"count":36,"results":[
		{"name":"CR90 corvette","model":"CR90 corvette","manufacturer":"Corellian Engineering Corporation",
		 "cost_in_credits":"3500000","max_atmosphering_speed":"950","hyperdrive_rating":"2.0","pilots":[]},
		{"name":"Star Destroyer","model":"Imperial I-class Star Destroyer","manufacturer":"Kuat Drive Yards",
		 "cost_in_credits":"150000000","max_atmosphering_speed":"975","hyperdrive_rating":"2.0","pilots":[]},
		{"name":"Sentinel-class landing craft","model":"Sentinel-class landing craft","manufacturer":"Sienar Fleet Systems",
		 "cost_in_credits":"unknown","max_atmosphering_speed":"1000","hyperdrive_rating":"1.0","pilots":["p1"]},
		{"name":"Death Star","model":"DS-1 Orbital Battle Station","manufacturer":"Imperial Department of Military Research",
		 "cost_in_credits":"1000000000000","max_atmosphering_speed":"n/a","hyperdrive_rating":"4.0","pilots":[]}]}`,
	"planets/?page=1": `{"count":60,"results":[
		{"name":"Tatooine","population":"200000","diameter":"10465","climate":"arid","films":["f1"]},
		{"name":"Alderaan","population":"2000000000","diameter":"12500","climate":"temperate","films":["f1","f6"]},
		{"name":"Hoth","population":"unknown","diameter":"7200","climate":"frozen","films":[]},
		{"name":"Coruscant","population":"1000000000000","diameter":"unknown","climate":"temperate","films":[]},
		{"name":"Kamino","population":"1000000000","diameter":"19720","climate":"temperate","films":[]}]}`,
	"films/": `{"count":3,"results":[
		{"title":"Return of the Jedi","episode_id":6,"director":"Richard Marquand","producer":"Howard G. Kazanjian",
		 "release_date":"1983-05-25","characters":["a","b"],"planets":["x"]},
		{"title":"A New Hope","episode_id":4,"director":"George Lucas","producer":"Gary Kurtz, Rick McCallum",
		 "release_date":"1977-05-25","characters":["a","b","c"],"planets":["x","y"]},
		{"title":"The Empire Strikes Back","episode_id":5,"director":"Irvin Kershner","producer":"Gary Kurtz",
		 "release_date":"1980-05-17","characters":["a"],"planets":[]}]}`,
	"vehicles/1": `{"name":"Sand Crawler","model":"Digger Crawler","manufacturer":"Corellia Mining Corporation",
		"cost_in_credits":"150000","length":"36.8 ","crew":"46","passengers":"30"}`,
}

// fakeFetcher serves fixtures and records the keys it was asked for.
type fakeFetcher struct {
	mu   sync.Mutex
	keys []string
	fail map[string]error
	m    *metrics.Counters
}

func (f *fakeFetcher) Fetch(_ context.Context, key string) (swapi.Payload, error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	if f.m != nil {
		f.m.IncRequests()
	}
	if err := f.fail[key]; err != nil {
		if f.m != nil {
			f.m.IncErrors()
		}
		return swapi.Payload{}, err
	}
	raw, ok := fixtures[key]
	if !ok {
		return swapi.Payload{}, &swapi.StatusError{Key: key, Code: 404}
	}
	return swapi.NewPayload([]byte(raw))
}

func payloadSize(t *testing.T, keys ...string) int64 {
	t.Helper()
	var n int64
	for _, k := range keys {
		p, err := swapi.NewPayload([]byte(fixtures[k]))
		if err != nil {
			t.Fatalf("fixture %s: %v", k, err)
		}
		n += int64(p.Size())
	}
	return n
}

func TestDriver_RunSequence(t *testing.T) {
	m := metrics.New(nil)
	f := &fakeFetcher{m: m}
	var out bytes.Buffer
	d := NewDriver(f, m, Config{Out: &out})

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"people/1", "starships/?page=1", "planets/?page=1", "films/", "vehicles/1"}
	if strings.Join(f.keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v; want %v", f.keys, want)
	}
	if r.RunID == "" {
		t.Fatal("expected run id")
	}
	if got, want := m.Snapshot().CumulativeBytes, payloadSize(t, want...); got != want {
		t.Fatalf("bytes = %d; want %d", got, want)
	}
	if r.Stats != nil {
		t.Fatal("stats block only in debug mode")
	}
}

func TestDriver_ReportContents(t *testing.T) {
	m := metrics.New(nil)
	var out bytes.Buffer
	d := NewDriver(&fakeFetcher{m: m}, m, Config{
		Out:       &out,
		Debug:     true,
		CacheSize: func() int { return 5 },
	})

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if r.Starships.Total != 36 || len(r.Starships.Top) != 3 {
		t.Fatalf("starships = %+v", r.Starships)
	}
	large := *r.LargePlanets
	if len(large) != 1 || large[0].Name != "Alderaan" {
		t.Fatalf("large planets = %+v", large)
	}
	films := *r.Films
	if films[0].Title != "A New Hope" || films[2].Title != "Return of the Jedi" {
		t.Fatalf("films not sorted: %v, %v, %v", films[0].Title, films[1].Title, films[2].Title)
	}

	text := out.String()
	for _, want := range []string{
		"Character: Luke Skywalker\n",
		"Birthday: 19BBY\n",
		"Appears in 4 films\n",
		"Total Starships: 36\n",
		"Cost: 3500000 credits\n",
		"Cost: unknown\n",
		"Pilots: 1\n",
		"Alderaan - Pop: 2000000000 - Diameter: 12500 - Climate: temperate\n",
		"  Appears in 2 films\n",
		"1. A New Hope (1977-05-25)\n",
		"   Characters: 3\n",
		"Featured Vehicle:\nName: Sand Crawler\n",
		"Crew Required: 46\n",
		"Stats:\nAPI Calls: 5\nCache Size: 5\n",
		"Error Count: 0\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(text, "Death Star") {
		t.Error("only the first three starships are printed")
	}
	if strings.Contains(text, "Kamino") {
		t.Error("population must exceed one billion, not equal it")
	}
}

func TestDriver_SkipsVehicleAboveMax(t *testing.T) {
	f := &fakeFetcher{}
	d := NewDriver(f, metrics.New(nil), Config{CharacterID: 7, Out: &bytes.Buffer{}})

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Vehicle != nil {
		t.Fatal("no vehicle expected for character 7")
	}
	for _, k := range f.keys {
		if strings.HasPrefix(k, "vehicles/") {
			t.Fatalf("unexpected fetch of %s", k)
		}
	}
}

func TestDriver_StopsAtFirstFailure(t *testing.T) {
	m := metrics.New(nil)
	boom := &swapi.TimeoutError{Key: "planets/?page=1"}
	f := &fakeFetcher{m: m, fail: map[string]error{"planets/?page=1": boom}}
	var out bytes.Buffer
	d := NewDriver(f, m, Config{Out: &out})

	r, err := d.Run(context.Background())
	if !errors.Is(err, swapi.ErrTimeout) {
		t.Fatalf("err = %v; want timeout", err)
	}
	if len(f.keys) != 3 {
		t.Fatalf("fetched %v; want to stop after planets", f.keys)
	}
	if r.Character == nil || r.Starships == nil || r.LargePlanets != nil || r.Films != nil {
		t.Fatalf("partial report = %+v", r)
	}
	if got := m.Snapshot().ErrorCount; got != 1 {
		t.Fatalf("errors = %d; want 1, the driver adds none", got)
	}
	if got, want := m.Snapshot().CumulativeBytes, payloadSize(t, "people/1", "starships/?page=1"); got != want {
		t.Fatalf("bytes = %d; want %d", got, want)
	}
	if !strings.Contains(out.String(), "Character: Luke Skywalker") {
		t.Fatal("sections collected before the failure are still printed")
	}
}

func TestDriver_NoStatsAfterFailure(t *testing.T) {
	m := metrics.New(nil)
	f := &fakeFetcher{m: m, fail: map[string]error{"films/": &swapi.StatusError{Key: "films/", Code: 500}}}
	var out bytes.Buffer
	d := NewDriver(f, m, Config{Out: &out, Debug: true, CacheSize: func() int { return 3 }})

	r, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected films failure")
	}
	if r.Stats != nil {
		t.Fatalf("stats = %+v; want none for a failed run", r.Stats)
	}
	if strings.Contains(out.String(), "Stats:") {
		t.Fatalf("stats block printed after failure:\n%s", out.String())
	}

	// the next complete run prints it again
	delete(f.fail, "films/")
	out.Reset()
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Stats:\nAPI Calls: 9\n") {
		t.Fatalf("stats block missing:\n%s", out.String())
	}
}

type runLog struct {
	mu       sync.Mutex
	started  []string
	finished map[string]error
	bytes    map[string]int64
}

func (l *runLog) RunStarted(_ context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, id)
}

func (l *runLog) RunFinished(_ context.Context, id string, n int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished[id] = err
	l.bytes[id] = n
}

func TestDriver_TriggerAndWait(t *testing.T) {
	rec := &runLog{finished: map[string]error{}, bytes: map[string]int64{}}
	d := NewDriver(&fakeFetcher{}, metrics.New(nil), Config{Out: &bytes.Buffer{}, Recorder: rec})

	id1 := d.Trigger(context.Background())
	id2 := d.Trigger(context.Background())
	if id1 == id2 {
		t.Fatal("run ids must differ")
	}
	d.Wait()

	if len(rec.started) != 2 || len(rec.finished) != 2 {
		t.Fatalf("started %d, finished %d; want 2 each", len(rec.started), len(rec.finished))
	}
	if err := rec.finished[id1]; err != nil {
		t.Fatalf("run %s failed: %v", id1, err)
	}
	if rec.bytes[id1] == 0 {
		t.Fatal("expected tallied bytes for run")
	}
}

func TestDriver_WithClientCachesAcrossRuns(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.RequestURI(), "/api/")
		mu.Lock()
		hits[key]++
		mu.Unlock()
		raw, ok := fixtures[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(raw))
	}))
	defer srv.Close()

	m := metrics.New(nil)
	c := cache.New[string, swapi.Payload]()
	client := swapi.NewClient(swapi.Config{BaseURL: srv.URL + "/api"}, c, m)
	d := NewDriver(client, m, Config{Out: &bytes.Buffer{}, CacheSize: c.Len})

	for range 2 {
		if _, err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	for key, n := range hits {
		if n != 1 {
			t.Errorf("%s fetched %d times over the network; want 1", key, n)
		}
	}
	s := m.Snapshot()
	if s.RequestsAttempted != 10 {
		t.Fatalf("requests = %d; want 10 (hits count)", s.RequestsAttempted)
	}
	if c.Len() != 5 {
		t.Fatalf("cache size = %d; want 5", c.Len())
	}
	keys := []string{"people/1", "starships/?page=1", "planets/?page=1", "films/", "vehicles/1"}
	if got, want := s.CumulativeBytes, 2*payloadSize(t, keys...); got != want {
		t.Fatalf("bytes = %d; want %d (tallied on hits too)", got, want)
	}
}
