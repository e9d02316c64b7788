package config

import (
	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/exclude"
)

// NewDefaultConfig returns a fully-populated Config with sane defaults.
// Directory fields stay empty here; they resolve through dotdir when the
// store is constructed.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Lock: LockConfig{
			TimeoutMs:    5000,
			RetryDelayMs: 50,
		},
		TTL: TTLConfig{
			Checkpoint: checkpoint.DefaultCheckpointTTL,
			Handoff:    checkpoint.DefaultHandoffTTL,
		},
		Exclude: ExcludeConfig{
			Patterns: append([]string(nil), exclude.DefaultPatterns...),
		},
		Serve: ServeConfig{
			DrainIntervalSec:   30,
			CleanupIntervalSec: 3600,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from
// NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Lock.TimeoutMs == 0 {
		cfg.Lock.TimeoutMs = defaults.Lock.TimeoutMs
	}
	if cfg.Lock.RetryDelayMs == 0 {
		cfg.Lock.RetryDelayMs = defaults.Lock.RetryDelayMs
	}

	if cfg.TTL.Checkpoint == "" {
		cfg.TTL.Checkpoint = defaults.TTL.Checkpoint
	}
	if cfg.TTL.Handoff == "" {
		cfg.TTL.Handoff = defaults.TTL.Handoff
	}

	if cfg.Exclude.Patterns == nil {
		cfg.Exclude.Patterns = defaults.Exclude.Patterns
	}

	if cfg.Serve.DrainIntervalSec == 0 {
		cfg.Serve.DrainIntervalSec = defaults.Serve.DrainIntervalSec
	}
	if cfg.Serve.CleanupIntervalSec == 0 {
		cfg.Serve.CleanupIntervalSec = defaults.Serve.CleanupIntervalSec
	}
}
