// Package bootstrap wires configuration, logging, the store, and the queue
// for handoff CLI commands.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/papercomputeco/handoff/pkg/config"
	"github.com/papercomputeco/handoff/pkg/dotdir"
	"github.com/papercomputeco/handoff/pkg/flock"
	"github.com/papercomputeco/handoff/pkg/logger"
	"github.com/papercomputeco/handoff/pkg/queue"
	"github.com/papercomputeco/handoff/pkg/store"
)

// Runtime bundles everything a command needs to operate on the store.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *store.Store
	Queue      *queue.Queue
	StorageDir string
	QueueDir   string
}

// Options control how Load builds the runtime.
type Options struct {
	// DirOverride points at an explicit .handoff directory (--dir flag).
	DirOverride string

	// Debug enables debug-level logging.
	Debug bool

	// JSONLogs switches from pretty CLI output to structured JSON.
	JSONLogs bool
}

// Load resolves configuration (defaults < config.toml < environment),
// builds the logger, and opens the store and queue.
func Load(opts Options) (*Runtime, error) {
	v, err := config.InitViper(opts.DirOverride)
	if err != nil {
		return nil, err
	}
	cfg := config.FromViper(v)

	log := logger.New(
		logger.WithDebug(opts.Debug),
		logger.WithPretty(!opts.JSONLogs),
		logger.WithJSON(opts.JSONLogs),
		logger.WithWriter(os.Stderr),
	)

	ddm := dotdir.NewManager()

	storageDir := cfg.Storage.Dir
	queueDir := cfg.Storage.QueueDir
	if storageDir == "" {
		storageDir, err = ddm.Target(opts.DirOverride)
		if err != nil {
			return nil, err
		}
		if queueDir == "" {
			queueDir, err = ddm.QueueDir(opts.DirOverride)
			if err != nil {
				return nil, err
			}
		}
	}
	if queueDir == "" {
		// Explicit storage dir from config; keep the queue beside it.
		queueDir = filepath.Join(storageDir, "queue")
	}

	s, err := store.New(storageDir,
		store.WithLogger(log),
		store.WithTTLs(cfg.TTL.Checkpoint, cfg.TTL.Handoff),
		store.WithExcludePatterns(cfg.Exclude.Patterns),
		store.WithLockOptions(flock.Options{
			Timeout:    time.Duration(cfg.Lock.TimeoutMs) * time.Millisecond,
			RetryDelay: time.Duration(cfg.Lock.RetryDelayMs) * time.Millisecond,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	q, err := queue.New(queueDir, log)
	if err != nil {
		return nil, fmt.Errorf("opening queue: %w", err)
	}

	return &Runtime{
		Config:     cfg,
		Logger:     log,
		Store:      s,
		Queue:      q,
		StorageDir: storageDir,
		QueueDir:   queueDir,
	}, nil
}

// FromFlags reads the persistent --dir/--debug/--json flags off a command's
// flag set and loads the runtime. Missing flags default to zero values, so
// commands without them still work.
func FromFlags(flags *pflag.FlagSet) (*Runtime, error) {
	dir, _ := flags.GetString("dir")
	debug, _ := flags.GetBool("debug")
	jsonLogs, _ := flags.GetBool("json")

	return Load(Options{DirOverride: dir, Debug: debug, JSONLogs: jsonLogs})
}
