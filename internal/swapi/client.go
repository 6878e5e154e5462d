// Package swapi fetches resources from the Star Wars API through an
// in-memory cache.
package swapi

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/revittco/galaxystats/internal/cache"
	"github.com/revittco/galaxystats/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://swapi.dev/api"

// DefaultTimeout bounds a single request when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Fetch outcomes reported to a Recorder.
const (
	OutcomeHit     = "hit"
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// FetchEvent describes one Fetch call: a cache hit or a network attempt.
type FetchEvent struct {
	Key        string
	Outcome    string
	ErrorKind  string
	Err        error
	StatusCode int
	Bytes      int
	Latency    time.Duration
}

// Recorder receives fetch events, e.g. to keep an audit history.
type Recorder interface {
	RecordFetch(ctx context.Context, ev FetchEvent)
}

// Config configures a Client.
type Config struct {
	// Root URL resources are resolved against. Defaults to DefaultBaseURL.
	BaseURL string
	// Per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// INSECURE: skip TLS certificate verification of the API server.
	// Only for hosts with broken certificates you already trust.
	InsecureSkipVerify bool
	// Share one network attempt between concurrent misses on the same key.
	Coalesce bool
	// Optional client; its CheckRedirect is left untouched.
	HTTPClient *http.Client
	// Logger to use. slog.Default() if nil.
	Logger *slog.Logger
	// Optional sink for fetch events.
	Recorder Recorder
}

// Client fetches API resources and caches every successfully parsed
// response for the lifetime of the process.
type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	cache    *cache.Cache[string, Payload]
	counters *metrics.Counters
	group    *singleflight.Group // nil unless coalescing
	log      *slog.Logger
	rec      Recorder
}

// NewClient creates a Client that stores payloads in c and updates m.
func NewClient(cfg Config, c *cache.Cache[string, Payload], m *metrics.Counters) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit opt-out
		}
		hc = &http.Client{
			Transport: transport,
			// do not follow redirects, classify the response as received
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	cl := &Client{
		baseURL:  baseURL,
		timeout:  timeout,
		http:     hc,
		cache:    c,
		counters: m,
		log:      logger.With("component", "swapi"),
		rec:      cfg.Recorder,
	}
	if cfg.Coalesce {
		cl.group = &singleflight.Group{}
	}
	return cl
}

// Fetch returns the payload for key, from the cache when present,
// otherwise with exactly one GET to <base-url>/<key>. Failures are one of
// *TransportError, *StatusError, *ParseError or *TimeoutError and are
// never retried.
func (c *Client) Fetch(ctx context.Context, key string) (Payload, error) {
	c.counters.IncRequests()

	if p, ok := c.cache.Get(key); ok {
		c.log.Debug("using cached data", "key", key)
		c.record(ctx, FetchEvent{Key: key, Outcome: OutcomeHit, Bytes: p.Size()})
		return p, nil
	}

	if c.group == nil {
		return c.fetchAndStore(ctx, key)
	}
	// The shared attempt outlives any one caller; the request timeout
	// still bounds it. A caller that gives up leaves the others waiting.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetchAndStore(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.log.Debug("joined in-flight fetch", "key", key)
		}
		p, _ := res.Val.(Payload)
		return p, res.Err
	case <-ctx.Done():
		return Payload{}, &TransportError{Key: key, Err: ctx.Err()}
	}
}

// Cache returns the underlying payload cache.
func (c *Client) Cache() *cache.Cache[string, Payload] {
	return c.cache
}

// Timeout returns the per-request timeout in effect.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) fetchAndStore(ctx context.Context, key string) (Payload, error) {
	start := time.Now()
	p, status, err := c.get(ctx, key)
	ev := FetchEvent{Key: key, StatusCode: status, Latency: time.Since(start)}

	if err != nil {
		c.counters.IncErrors()
		ev.Outcome = OutcomeError
		ev.ErrorKind = Kind(err)
		ev.Err = err
		c.record(ctx, ev)
		c.log.Debug("fetch failed", "key", key, "kind", ev.ErrorKind, "error", err)
		return Payload{}, err
	}

	c.cache.Set(key, p)
	ev.Outcome = OutcomeSuccess
	ev.Bytes = p.Size()
	c.record(ctx, ev)
	c.log.Debug("successfully fetched data",
		"key", key,
		"status", status,
		"bytes", p.Size(),
		"cache_size", c.cache.Len(),
		"duration_ms", ev.Latency.Milliseconds(),
	)
	return p, nil
}

// get performs the request. The returned status is 0 when no response
// was received.
func (c *Client) get(ctx context.Context, key string) (Payload, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return Payload{}, 0, &TransportError{Key: key, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Payload{}, 0, c.classify(ctx, reqCtx, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Payload{}, resp.StatusCode, &StatusError{Key: key, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, resp.StatusCode, c.classify(ctx, reqCtx, key, err)
	}

	p, err := parsePayload(body)
	if err != nil {
		return Payload{}, resp.StatusCode, &ParseError{Key: key, Err: err}
	}
	return p, resp.StatusCode, nil
}

// classify maps a request or body-read error to a failure kind. The
// per-request deadline is a timeout only while the caller's context is
// still live.
func (c *Client) classify(ctx, reqCtx context.Context, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TransportError{Key: key, Err: ctxErr}
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Key: key, Timeout: c.timeout}
	}
	return &TransportError{Key: key, Err: err}
}

func (c *Client) url(key string) string {
	return c.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (c *Client) record(ctx context.Context, ev FetchEvent) {
	if c.rec != nil {
		c.rec.RecordFetch(ctx, ev)
	}
}
