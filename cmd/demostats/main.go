// Command demostats analyses one recording and writes its report to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"demostats/internal/config"
	"demostats/internal/demo"
	"demostats/internal/logging"
	"demostats/internal/metrics"
	"demostats/internal/processor"
)

const (
	exitOK = iota
	exitUsage
	exitInput
	exitDecode
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := logging.Logger()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: demostats <recording.dem>")
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("config load failed: %v", err)
		return exitUsage
	}
	if err := logging.Configure(cfg.LogLevel, os.Stderr); err != nil {
		logger.Errorf("invalid log level: %v", err)
		return exitUsage
	}
	logger = logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()
	proc := processor.New(cfg.Policy(), cfg.Categories, m)

	_, err = proc.HandleFile(ctx, args[0], os.Stdout)
	if cfg.MetricsTextfile != "" {
		if werr := m.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Warnf("metrics textfile: %v", werr)
		}
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, demo.ErrInputAccess):
		logger.Errorf("%v", err)
		return exitInput
	default:
		logger.Errorf("%v", err)
		return exitDecode
	}
}
