package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/revittco/galaxystats/internal/config"
)

// flagValues holds the command-line overrides. Only flags that were set
// are applied.
type flagValues struct {
	configFile  string
	noDebug     bool
	timeoutMs   int
	port        int
	characterID int
	insecure    bool
	coalesce    bool
	history     string
}

func newFlagSet(name string, fv *flagValues) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&fv.configFile, "config", "", "path to a galaxystats.yaml file")
	fs.BoolVar(&fv.noDebug, "no-debug", false, "disable debug logging and the stats block")
	fs.IntVar(&fv.timeoutMs, "timeout", 0, "per-request timeout in milliseconds")
	fs.IntVar(&fv.port, "port", 0, "HTTP listen port")
	fs.IntVar(&fv.characterID, "character", 0, "character id to report on")
	fs.BoolVar(&fv.insecure, "insecure", false, "INSECURE: skip TLS verification of the API server")
	fs.BoolVar(&fv.coalesce, "coalesce", false, "share one request between concurrent misses on the same key")
	fs.StringVar(&fv.history, "history", "", "SQLite path for the fetch history (empty disables)")
	return fs
}

// loadConfig resolves settings: defaults, then the YAML file, then the
// environment, then flags.
func loadConfig(name string, args []string, stderr io.Writer) (config.Settings, error) {
	var fv flagValues
	fs := newFlagSet(name, &fv)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return config.Settings{}, err
	}
	if fs.NArg() > 0 {
		return config.Settings{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	s := config.Defaults()

	path := envOr("GALAXYSTATS_CONFIG", "")
	if set["config"] {
		path = fv.configFile
	}
	if path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return config.Settings{}, err
		}
		fc.Apply(&s)
	}

	if err := applyEnv(&s); err != nil {
		return config.Settings{}, err
	}

	if set["no-debug"] {
		s.Debug = !fv.noDebug
	}
	if set["timeout"] {
		s.Timeout = time.Duration(fv.timeoutMs) * time.Millisecond
	}
	if set["port"] {
		s.Port = fv.port
	}
	if set["character"] {
		s.CharacterID = fv.characterID
	}
	if set["insecure"] {
		s.InsecureSkipVerify = fv.insecure
	}
	if set["coalesce"] {
		s.Coalesce = fv.coalesce
	}
	if set["history"] {
		s.HistoryDSN = fv.history
	}

	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func applyEnv(s *config.Settings) error {
	s.BaseURL = envOr("GALAXYSTATS_BASE_URL", s.BaseURL)
	s.HistoryDSN = envOr("GALAXYSTATS_HISTORY_DSN", s.HistoryDSN)
	s.LogLevel = envOr("GALAXYSTATS_LOG_LEVEL", s.LogLevel)

	ints := []struct {
		key string
		fn  func(int)
	}{
		{"PORT", func(n int) { s.Port = n }},
		{"GALAXYSTATS_TIMEOUT_MS", func(n int) { s.Timeout = time.Duration(n) * time.Millisecond }},
		{"GALAXYSTATS_CHARACTER_ID", func(n int) { s.CharacterID = n }},
	}
	for _, e := range ints {
		v := envOr(e.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		e.fn(n)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"GALAXYSTATS_DEBUG", &s.Debug},
		{"GALAXYSTATS_COALESCE", &s.Coalesce},
		{"GALAXYSTATS_INSECURE_SKIP_VERIFY", &s.InsecureSkipVerify},
	}
	for _, e := range bools {
		v := envOr(e.key, "")
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = b
	}
	return nil
}

// newLogger builds the process logger. Debug mode forces debug level.
func newLogger(s config.Settings) *slog.Logger {
	level := parseLogLevel(s.LogLevel)
	if s.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
