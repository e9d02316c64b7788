// Package store implements the checkpoint store: CRUD over one mutable
// rolling checkpoint per project and any number of immutable explicit
// handoffs, all persisted as JSON files in a single directory.
//
// The rolling checkpoint's read-modify-write cycle runs under a per-project
// file lock (pkg/flock) so concurrent writer processes never interleave
// partial merges. Handoffs are written once and never mutated, so they need
// no locking beyond atomic whole-file writes.
//
// Every read path is a total function: a missing, unparseable, or
// schema-invalid document reads back as absent, never as an error. A crashed
// writer mid-write must not poison future reads; the distinguishing reason
// is logged at debug level instead.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/exclude"
	"github.com/papercomputeco/handoff/pkg/flock"
)

const (
	// rollingSuffix marks the rolling checkpoint file for a project.
	rollingSuffix = "-current.json"

	// lockPrefix namespaces the rolling checkpoint's lock resource.
	lockPrefix = "rolling-"
)

// Store persists checkpoints and handoffs under a single directory.
// Lock files live in the same directory as the documents they protect.
type Store struct {
	dir           string
	locks         *flock.Manager
	lockOpts      flock.Options
	checkpointTTL string
	handoffTTL    string
	patterns      []string
	logger        *slog.Logger
}

// Option configures a Store created with New.
type Option func(*Store)

// WithLockOptions overrides the lock acquisition timeout and retry delay
// used by the rolling checkpoint write path.
func WithLockOptions(opts flock.Options) Option {
	return func(s *Store) { s.lockOpts = opts }
}

// WithTTLs overrides the default TTL strings stamped onto new rolling
// checkpoints and handoffs.
func WithTTLs(checkpointTTL, handoffTTL string) Option {
	return func(s *Store) {
		if checkpointTTL != "" {
			s.checkpointTTL = checkpointTTL
		}
		if handoffTTL != "" {
			s.handoffTTL = handoffTTL
		}
	}
}

// WithExcludePatterns replaces the path-exclusion pattern list applied to
// file entries on merge. Callers own the list; pass nil to disable.
func WithExcludePatterns(patterns []string) Option {
	return func(s *Store) { s.patterns = patterns }
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	s := &Store{
		dir:           dir,
		checkpointTTL: checkpoint.DefaultCheckpointTTL,
		handoffTTL:    checkpoint.DefaultHandoffTTL,
		patterns:      exclude.DefaultPatterns,
		logger:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.locks = flock.NewManager(dir, s.logger)

	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) rollingPath(projectHash string) string {
	return filepath.Join(s.dir, projectHash+rollingSuffix)
}

func (s *Store) handoffPath(projectHash, id string) string {
	return filepath.Join(s.dir, projectHash+"."+id+".json")
}

func (s *Store) legacyHandoffPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// ReadRolling returns the rolling checkpoint for a project hash, or nil if
// it is absent, unparseable, or fails schema validation.
func (s *Store) ReadRolling(projectHash string) *checkpoint.Checkpoint {
	return s.readDocument(s.rollingPath(projectHash))
}

// readDocument loads and validates one document file, mapping every failure
// to nil per the "errors as absent" contract.
func (s *Store) readDocument(path string) *checkpoint.Checkpoint {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("reading document", "path", path, "error", err)
		}
		return nil
	}

	cp, err := checkpoint.Decode(data)
	if err != nil {
		s.logger.Debug("discarding invalid document", "path", path, "error", err)
		return nil
	}

	return cp
}

// writeDocument persists a document with a single atomic whole-file write:
// marshal to a temp file in the same directory, then rename over the target.
func (s *Store) writeDocument(path string, cp *checkpoint.Checkpoint) error {
	data, err := checkpoint.Encode(cp)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".doc-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp document: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming document into place: %w", err)
	}

	return nil
}

// newID mints an opaque short identifier for documents and handoffs.
func newID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// newRolling synthesizes a fresh default rolling checkpoint for a project.
func (s *Store) newRolling(projectRoot, projectHash string, now time.Time) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		ID:      newID(),
		Version: checkpoint.SchemaVersion,
		Created: now,
		Updated: now,
		TTL:     s.checkpointTTL,
		Project: checkpoint.Project{
			Root: projectRoot,
			Hash: projectHash,
		},
		Context: checkpoint.Context{
			State: checkpoint.StateInProgress,
			Files: []checkpoint.FileRef{},
		},
		Todos: []checkpoint.TodoItem{},
	}
}
