// Package config loads runtime settings for the analyzers.
package config

import (
	"errors"

	"demostats/internal/aggregate"
)

// ErrInvalidConfig marks a configuration that loaded but cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime configuration for the analyzer binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Economy classification and round layout.
	SaveThreshold         int `koanf:"save_threshold"`
	LightBuyThreshold     int `koanf:"light_buy_threshold"`
	RoundsPerHalf         int `koanf:"rounds_per_half"`
	OvertimeRoundsPerHalf int `koanf:"overtime_rounds_per_half"`

	// BlindGrenades lists detonation types blind events are attributed to.
	BlindGrenades []string `koanf:"blind_grenades"`

	// Categories restricts streamed line categories; empty streams all.
	Categories []string `koanf:"categories"`

	// Highlight detector. Zero accounts disable it.
	HighlightFirst         uint64  `koanf:"highlight_first"`
	HighlightSecond        uint64  `koanf:"highlight_second"`
	HighlightOriginX       float64 `koanf:"highlight_origin_x"`
	HighlightOriginY       float64 `koanf:"highlight_origin_y"`
	HighlightMaxDistanceSq float64 `koanf:"highlight_max_distance_sq"`

	// MetricsTextfile, when set, receives a Prometheus text dump at exit.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Redis backs the job queue and the shared index cache.
	RedisURL      string `koanf:"redis_url"`
	RedisQueue    string `koanf:"redis_queue"`
	RedisCacheKey string `koanf:"redis_cache_key"`

	// CachePath is the JSON index cache used when Redis is not configured.
	CachePath string `koanf:"cache_path"`

	// IndexWorkers bounds concurrent demo analysis in batch mode.
	IndexWorkers int `koanf:"index_workers"`
	// JobBufferSize sizes the queue worker's hand-off channel.
	JobBufferSize int `koanf:"job_buffer_size"`
}

// New returns a Config with defaults.
func New() *Config {
	policy := aggregate.DefaultPolicy()
	return &Config{
		LogLevel:              "info",
		SaveThreshold:         policy.SaveThreshold,
		LightBuyThreshold:     policy.LightBuyThreshold,
		RoundsPerHalf:         policy.RoundsPerHalf,
		OvertimeRoundsPerHalf: policy.OvertimeRoundsPerHalf,
		BlindGrenades:         policy.BlindGrenades,
		RedisQueue:            "demostats_demos",
		RedisCacheKey:         "demostats:index",
		CachePath:             "demodata.json",
		IndexWorkers:          4,
		JobBufferSize:         16,
	}
}

// Policy builds the aggregation rules from the configuration.
func (c *Config) Policy() aggregate.Policy {
	return aggregate.Policy{
		SaveThreshold:         c.SaveThreshold,
		LightBuyThreshold:     c.LightBuyThreshold,
		RoundsPerHalf:         c.RoundsPerHalf,
		OvertimeRoundsPerHalf: c.OvertimeRoundsPerHalf,
		BlindGrenades:         c.BlindGrenades,
		Highlight: aggregate.Highlight{
			First:         c.HighlightFirst,
			Second:        c.HighlightSecond,
			OriginX:       c.HighlightOriginX,
			OriginY:       c.HighlightOriginY,
			MaxDistanceSq: c.HighlightMaxDistanceSq,
		},
	}
}
