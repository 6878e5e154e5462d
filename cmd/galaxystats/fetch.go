package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// cmdFetch performs one aggregation run and prints the report to stdout.
func cmdFetch(args []string) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	cfg, err := loadConfig("fetch", args, os.Stderr)
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

	_, err = a.driver.Run(ctx)
	return err
}
