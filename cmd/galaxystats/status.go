package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type statsBody struct {
	APICalls  int64 `json:"api_calls"`
	CacheSize int   `json:"cache_size"`
	DataSize  int64 `json:"data_size"`
	Errors    int64 `json:"errors"`
	Debug     bool  `json:"debug"`
	Timeout   int64 `json:"timeout"`
}

// cmdStatus prints the counters of a running server.
func cmdStatus(args []string) error {
	cfg, err := loadConfig("status", args, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base := httpURLFromAddr("127.0.0.1" + listenAddr(cfg.Port))
	stats, err := fetchStats(ctx, http.DefaultClient, base)
	if err != nil {
		return err
	}
	return printStats(os.Stdout, base, stats)
}

func fetchStats(ctx context.Context, hc *http.Client, base string) (*statsBody, error) {
	url := strings.TrimRight(base, "/") + "/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s: unexpected status %s", url, resp.Status)
	}
	var s statsBody
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &s, nil
}

func printStats(w io.Writer, base string, s *statsBody) error {
	debug := "OFF"
	if s.Debug {
		debug = "ON"
	}
	_, err := fmt.Fprintf(w, `galaxystats status (%s)
  API calls:        %d
  Cache entries:    %d
  Total data size:  %d bytes
  Errors:           %d
  Debug mode:       %s
  Timeout:          %d ms
`, base, s.APICalls, s.CacheSize, s.DataSize, s.Errors, debug, s.Timeout)
	return err
}
