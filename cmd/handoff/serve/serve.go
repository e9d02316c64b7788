// Package servecmder implements the long-lived reader process: it drains
// the fallback queue into the store on a timer and whenever new entries
// land, and periodically expires old documents and orphaned queue entries.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/logger"
	"github.com/papercomputeco/handoff/pkg/queue"
)

const (
	// watchDebounce coalesces bursts of queue-file creations into one drain.
	watchDebounce = 250 * time.Millisecond

	// serveLogName is the JSON log file kept in the storage directory.
	serveLogName = "serve.log"
)

// newServeLogger layers a JSON log file under the terminal logger, so the
// long-running service leaves a structured record beside the documents it
// manages.
func newServeLogger(base *slog.Logger, path string, debug bool) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening serve log: %w", err)
	}

	log := logger.Multi(
		base,
		logger.New(logger.WithJSON(true), logger.WithDebug(debug), logger.WithWriter(f)),
	)

	return log, f, nil
}

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue drain and cleanup service",
		Long: `Serve watches the fallback queue directory and replays pending
updates into the checkpoint store, preserving per-project ordering. It also
expires documents past their TTL and removes orphaned queue entries.`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	debug, _ := cmd.Flags().GetBool("debug")
	log, logFile, err := newServeLogger(rt.Logger, filepath.Join(rt.StorageDir, serveLogName), debug)
	if err != nil {
		return err
	}
	defer logFile.Close()

	processor := queue.NewProcessor(rt.Queue, rt.Store, queue.WithProcessorLogger(log))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(rt.QueueDir); err != nil {
		return err
	}

	log.Info("serve started",
		"storage_dir", rt.StorageDir,
		"queue_dir", rt.QueueDir,
		"drain_interval_sec", rt.Config.Serve.DrainIntervalSec,
	)

	drainTicker := time.NewTicker(time.Duration(rt.Config.Serve.DrainIntervalSec) * time.Second)
	defer drainTicker.Stop()

	cleanupTicker := time.NewTicker(time.Duration(rt.Config.Serve.CleanupIntervalSec) * time.Second)
	defer cleanupTicker.Stop()

	// Debounce timer for watcher events; starts disarmed.
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	drain := func(trigger string) {
		result := processor.Drain()
		if result.Processed > 0 || result.Errors > 0 {
			log.Info("queue drained",
				"trigger", trigger,
				"processed", result.Processed,
				"errors", result.Errors,
			)
		}
	}

	cleanup := func() {
		removed, err := rt.Store.CleanupExpired()
		if err != nil {
			log.Warn("document cleanup", "error", err)
		} else if removed > 0 {
			log.Info("expired documents removed", "count", removed)
		}

		orphans, err := rt.Queue.CleanupOrphans(queue.OrphanMaxAge)
		if err != nil {
			log.Warn("queue orphan cleanup", "error", err)
		} else if orphans > 0 {
			log.Info("orphaned queue entries removed", "count", orphans)
		}
	}

	// Catch up on anything queued while no service was running.
	drain("startup")
	cleanup()

	for {
		select {
		case <-ctx.Done():
			log.Info("serve stopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("queue watcher", "error", err)

		case <-debounce.C:
			drain("watch")

		case <-drainTicker.C:
			drain("interval")

		case <-cleanupTicker.C:
			cleanup()
		}
	}
}
