package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"demostats/internal/config"
	"demostats/internal/logging"
	"demostats/internal/metrics"
	"demostats/internal/processor"
	"demostats/internal/queue"
	"demostats/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if cfg.RedisURL == "" {
		logger.Errorf("redis_url is required")
		os.Exit(1)
	}
	redisClient, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Errorf("redis connection failed: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	m := metrics.NewManager()
	proc := processor.New(cfg.Policy(), cfg.Categories, m)
	fingerprint, err := proc.Fingerprint()
	if err != nil {
		logger.Errorf("fingerprint settings: %v", err)
		os.Exit(1)
	}
	cache := store.NewRedisCache(redisClient, cfg.RedisCacheKey, fingerprint)
	q := queue.New(redisClient, cfg.RedisQueue)

	handler := proc.JobHandler(ctx, cache)

	if cfg.IndexWorkers > 1 {
		logger.Infof("starting concurrent consumption with %d workers", cfg.IndexWorkers)
		if err := q.ConsumeConcurrent(ctx, cfg.IndexWorkers, cfg.JobBufferSize, handler); err != nil && ctx.Err() == nil {
			logger.Errorf("queue consumption ended: %v", err)
			os.Exit(1)
		}
	} else {
		logger.Infof("starting single-threaded consumption")
		if err := q.Consume(ctx, handler); err != nil && ctx.Err() == nil {
			logger.Errorf("queue consumption ended: %v", err)
			os.Exit(1)
		}
	}

	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warnf("metrics textfile: %v", err)
		}
	}
}
