package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/handoff/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables with
// the HANDOFF_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command layer)
//  2. Environment variables (HANDOFF_STORAGE_DIR, HANDOFF_LOCK_TIMEOUT_MS, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: HANDOFF_STORAGE_DIR, HANDOFF_TTL_HANDOFF, etc.
	v.SetEnvPrefix("HANDOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of
// truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.queue_dir", d.Storage.QueueDir)

	// Lock
	v.SetDefault("lock.timeout_ms", d.Lock.TimeoutMs)
	v.SetDefault("lock.retry_delay_ms", d.Lock.RetryDelayMs)

	// TTL
	v.SetDefault("ttl.checkpoint", d.TTL.Checkpoint)
	v.SetDefault("ttl.handoff", d.TTL.Handoff)

	// Exclude
	v.SetDefault("exclude.patterns", d.Exclude.Patterns)

	// Serve
	v.SetDefault("serve.drain_interval_sec", d.Serve.DrainIntervalSec)
	v.SetDefault("serve.cleanup_interval_sec", d.Serve.CleanupIntervalSec)
}

// FromViper materializes a Config from a viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Dir:      v.GetString("storage.dir"),
			QueueDir: v.GetString("storage.queue_dir"),
		},
		Lock: LockConfig{
			TimeoutMs:    v.GetInt("lock.timeout_ms"),
			RetryDelayMs: v.GetInt("lock.retry_delay_ms"),
		},
		TTL: TTLConfig{
			Checkpoint: v.GetString("ttl.checkpoint"),
			Handoff:    v.GetString("ttl.handoff"),
		},
		Exclude: ExcludeConfig{
			Patterns: v.GetStringSlice("exclude.patterns"),
		},
		Serve: ServeConfig{
			DrainIntervalSec:   v.GetInt("serve.drain_interval_sec"),
			CleanupIntervalSec: v.GetInt("serve.cleanup_interval_sec"),
		},
	}

	applyDefaults(cfg)

	return cfg
}
