package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters_Snapshot(t *testing.T) {
	c := New(nil)
	c.IncRequests()
	c.IncRequests()
	c.AddBytes(120)
	c.AddBytes(-5)
	c.IncErrors()

	got := c.Snapshot()
	want := Snapshot{RequestsAttempted: 2, CumulativeBytes: 120, ErrorCount: 1}
	if got != want {
		t.Fatalf("Snapshot = %+v; want %+v", got, want)
	}
}

func TestCounters_Concurrent(t *testing.T) {
	c := New(nil)
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncRequests()
			c.IncErrors()
			c.AddBytes(3)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.RequestsAttempted != 100 || s.ErrorCount != 100 || s.CumulativeBytes != 300 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
}

func TestCounters_PrometheusMirror(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.IncRequests()
	c.IncErrors()
	c.AddBytes(42)

	if v := testutil.ToFloat64(c.promRequests); v != 1 {
		t.Errorf("requests_total = %v; want 1", v)
	}
	if v := testutil.ToFloat64(c.promErrors); v != 1 {
		t.Errorf("fetch_errors_total = %v; want 1", v)
	}
	if v := testutil.ToFloat64(c.promBytes); v != 42 {
		t.Errorf("payload_bytes_total = %v; want 42", v)
	}

	size := 3
	RegisterCacheSize(reg, func() int { return size })
	n, err := testutil.GatherAndCount(reg, "galaxystats_cache_entries")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Fatalf("cache_entries series = %d; want 1", n)
	}
}
