// Command demoindex analyses every new recording in a directory into the
// index cache, or queues them for workers with -enqueue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"demostats/internal/config"
	"demostats/internal/index"
	"demostats/internal/logging"
	"demostats/internal/metrics"
	"demostats/internal/processor"
	"demostats/internal/queue"
	"demostats/internal/store"
)

func main() {
	enqueue := flag.Bool("enqueue", false, "queue uncached recordings for workers instead of analysing them")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: demoindex [-enqueue] <directory>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	dir := flag.Arg(0)

	logger := logging.Logger()
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("config load failed: %v", err)
		os.Exit(1)
	}
	if err := logging.Configure(cfg.LogLevel, os.Stderr); err != nil {
		logger.Errorf("invalid log level: %v", err)
		os.Exit(1)
	}
	logger = logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()
	proc := processor.New(cfg.Policy(), cfg.Categories, m)
	fingerprint, err := proc.Fingerprint()
	if err != nil {
		logger.Errorf("fingerprint settings: %v", err)
		os.Exit(1)
	}

	var cache store.Cache
	var q *queue.DemoQueue
	if cfg.RedisURL != "" {
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Errorf("redis connection failed: %v", err)
			os.Exit(1)
		}
		defer client.Close()
		cache = store.NewRedisCache(client, cfg.RedisCacheKey, fingerprint)
		q = queue.New(client, cfg.RedisQueue)
	} else {
		if *enqueue {
			logger.Errorf("-enqueue needs redis_url")
			os.Exit(1)
		}
		fc, err := store.OpenFile(cfg.CachePath, fingerprint)
		if err != nil {
			logger.Errorf("open cache: %v", err)
			os.Exit(1)
		}
		cache = fc
	}

	ix := index.New(proc, cache, cfg.IndexWorkers, m)
	var rep index.Report
	if *enqueue {
		rep, err = ix.Enqueue(ctx, dir, q)
	} else {
		rep, err = ix.Run(ctx, dir)
	}

	if cfg.MetricsTextfile != "" {
		if werr := m.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Warnf("metrics textfile: %v", werr)
		}
	}
	if err != nil {
		logger.Errorf("index %s: %v", dir, err)
		os.Exit(2)
	}
	if rep.Halted {
		os.Exit(130)
	}
}
