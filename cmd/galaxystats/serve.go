package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/revittco/galaxystats/internal/api"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(args []string) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	cfg, err := loadConfig("serve", args, os.Stderr)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deps := api.RouterDeps{
		Driver:   a.driver,
		Counters: a.counters,
		Cache:    a.cache,
		Debug:    cfg.Debug,
		Timeout:  cfg.Timeout,
		BaseCtx:  ctx,
		Gatherer: a.registry,
		Events:   a.events,
	}
	if a.history != nil {
		deps.History = a.history
	}

	srv := &http.Server{
		Addr:              listenAddr(cfg.Port),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}
	return serveHTTP(ctx, srv, os.Stdout, cfg.Debug, cfg.Timeout, cfg.InsecureSkipVerify)
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
// Request contexts derive from ctx, so long-lived streams end when it is
// cancelled instead of holding Shutdown open.
func serveHTTP(ctx context.Context, srv *http.Server, console io.Writer, debug bool, timeout time.Duration, insecure bool) error {
	g, gctx := errgroup.WithContext(ctx)
	if srv.BaseContext == nil {
		srv.BaseContext = func(net.Listener) context.Context { return gctx }
	}

	g.Go(func() error {
		url := httpURLFromAddr(srv.Addr)
		slog.Info("http server listening", "addr", srv.Addr, "url", url)
		fmt.Fprintf(console, "Server running at %s\n", url)
		fmt.Fprintln(console, "Open the URL in your browser and click the button to fetch Star Wars data")
		if debug {
			fmt.Fprintln(console, "Debug mode: ON")
			fmt.Fprintf(console, "Timeout: %d ms\n", timeout.Milliseconds())
		}
		if insecure {
			slog.Warn("TLS certificate verification of the API server is disabled")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
