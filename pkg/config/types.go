package config

import (
	"strconv"
	"strings"
)

// Config represents the persistent handoff configuration stored as
// config.toml in the .handoff/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Lock    LockConfig    `toml:"lock"`
	TTL     TTLConfig     `toml:"ttl"`
	Exclude ExcludeConfig `toml:"exclude"`
	Serve   ServeConfig   `toml:"serve"`
}

// StorageConfig holds the document and queue directory locations. Empty
// values resolve through dotdir at startup.
type StorageConfig struct {
	Dir      string `toml:"dir,omitempty"`
	QueueDir string `toml:"queue_dir,omitempty"`
}

// LockConfig tunes the rolling checkpoint lock.
type LockConfig struct {
	TimeoutMs    int `toml:"timeout_ms,omitempty"`
	RetryDelayMs int `toml:"retry_delay_ms,omitempty"`
}

// TTLConfig holds the default TTL strings stamped onto new documents.
type TTLConfig struct {
	Checkpoint string `toml:"checkpoint,omitempty"`
	Handoff    string `toml:"handoff,omitempty"`
}

// ExcludeConfig holds the path-exclusion patterns applied to file entries.
type ExcludeConfig struct {
	Patterns []string `toml:"patterns,omitempty"`
}

// ServeConfig tunes the long-running drain service.
type ServeConfig struct {
	DrainIntervalSec   int `toml:"drain_interval_sec,omitempty"`
	CleanupIntervalSec int `toml:"cleanup_interval_sec,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter
// on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.dir": {
		get: func(c *Config) string { return c.Storage.Dir },
		set: func(c *Config, v string) error { c.Storage.Dir = v; return nil },
	},
	"storage.queue_dir": {
		get: func(c *Config) string { return c.Storage.QueueDir },
		set: func(c *Config, v string) error { c.Storage.QueueDir = v; return nil },
	},
	"lock.timeout_ms": {
		get: func(c *Config) string { return formatInt(c.Lock.TimeoutMs) },
		set: func(c *Config, v string) error { return parseInt(v, "lock.timeout_ms", &c.Lock.TimeoutMs) },
	},
	"lock.retry_delay_ms": {
		get: func(c *Config) string { return formatInt(c.Lock.RetryDelayMs) },
		set: func(c *Config, v string) error { return parseInt(v, "lock.retry_delay_ms", &c.Lock.RetryDelayMs) },
	},
	"ttl.checkpoint": {
		get: func(c *Config) string { return c.TTL.Checkpoint },
		set: func(c *Config, v string) error { c.TTL.Checkpoint = v; return nil },
	},
	"ttl.handoff": {
		get: func(c *Config) string { return c.TTL.Handoff },
		set: func(c *Config, v string) error { c.TTL.Handoff = v; return nil },
	},
	"exclude.patterns": {
		get: func(c *Config) string { return strings.Join(c.Exclude.Patterns, ",") },
		set: func(c *Config, v string) error {
			parts := strings.Split(v, ",")
			patterns := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					patterns = append(patterns, p)
				}
			}
			c.Exclude.Patterns = patterns
			return nil
		},
	},
	"serve.drain_interval_sec": {
		get: func(c *Config) string { return formatInt(c.Serve.DrainIntervalSec) },
		set: func(c *Config, v string) error {
			return parseInt(v, "serve.drain_interval_sec", &c.Serve.DrainIntervalSec)
		},
	},
	"serve.cleanup_interval_sec": {
		get: func(c *Config) string { return formatInt(c.Serve.CleanupIntervalSec) },
		set: func(c *Config, v string) error {
			return parseInt(v, "serve.cleanup_interval_sec", &c.Serve.CleanupIntervalSec)
		},
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(v, key string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return &invalidValueError{key: key, err: err}
	}
	*dst = n
	return nil
}

type invalidValueError struct {
	key string
	err error
}

func (e *invalidValueError) Error() string {
	return "invalid value for " + e.key + ": " + e.err.Error()
}

func (e *invalidValueError) Unwrap() error {
	return e.err
}
