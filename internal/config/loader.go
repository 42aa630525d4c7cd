package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "DEMOSTATS_"
	EnvFile   = "DEMOSTATS_CONFIG"
)

// Load builds a Config by layering, from low to high precedence, the
// defaults of New, the YAML file named by DEMOSTATS_CONFIG and
// DEMOSTATS_-prefixed environment variables (DEMOSTATS_SAVE_THRESHOLD ->
// save_threshold).
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the analyzers cannot run with.
func (c *Config) Validate() error {
	if c.RoundsPerHalf <= 0 {
		return fmt.Errorf("%w: rounds_per_half must be positive", ErrInvalidConfig)
	}
	if c.OvertimeRoundsPerHalf <= 0 {
		return fmt.Errorf("%w: overtime_rounds_per_half must be positive", ErrInvalidConfig)
	}
	if c.SaveThreshold < 0 || c.LightBuyThreshold < 0 {
		return fmt.Errorf("%w: economy thresholds must not be negative", ErrInvalidConfig)
	}
	if c.IndexWorkers <= 0 {
		return fmt.Errorf("%w: index_workers must be positive", ErrInvalidConfig)
	}
	if (c.HighlightFirst == 0) != (c.HighlightSecond == 0) {
		return fmt.Errorf("%w: highlight_first and highlight_second must be set together", ErrInvalidConfig)
	}
	return nil
}
