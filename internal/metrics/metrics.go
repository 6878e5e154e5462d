// Package metrics holds the process-wide fetch counters and mirrors them
// into Prometheus collectors.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "galaxystats"

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RequestsAttempted int64 `json:"requests_attempted"`
	CumulativeBytes   int64 `json:"cumulative_bytes"`
	ErrorCount        int64 `json:"error_count"`
}

// Counters tracks fetch attempts, payload bytes accounted by callers and
// failed fetches. All counters are monotonic; there is no reset.
type Counters struct {
	requests atomic.Int64
	bytes    atomic.Int64
	errors   atomic.Int64

	promRequests prometheus.Counter
	promBytes    prometheus.Counter
	promErrors   prometheus.Counter
}

// New creates counters and registers their Prometheus mirrors on reg.
// A nil reg skips registration.
func New(reg prometheus.Registerer) *Counters {
	c := &Counters{
		promRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Fetch invocations, cache hits included.",
		}),
		promBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Serialized size of payloads tallied by the aggregation driver.",
		}),
		promErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed fetch attempts: timeout, transport, status or parse.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.promRequests, c.promBytes, c.promErrors)
	}
	return c
}

// IncRequests records one fetch invocation.
func (c *Counters) IncRequests() {
	c.requests.Add(1)
	c.promRequests.Inc()
}

// AddBytes adds n bytes of payload to the running total. Negative values
// are ignored.
func (c *Counters) AddBytes(n int) {
	if n <= 0 {
		return
	}
	c.bytes.Add(int64(n))
	c.promBytes.Add(float64(n))
}

// IncErrors records one failed fetch.
func (c *Counters) IncErrors() {
	c.errors.Add(1)
	c.promErrors.Inc()
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RequestsAttempted: c.requests.Load(),
		CumulativeBytes:   c.bytes.Load(),
		ErrorCount:        c.errors.Load(),
	}
}

// RegisterCacheSize exposes the number of cached entries as a gauge.
func RegisterCacheSize(reg prometheus.Registerer, size func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Resources currently held in the in-memory cache.",
	}, func() float64 { return float64(size()) }))
}
