// Package queue implements the fallback write-ahead queue: a directory of
// pending-update files written by processes that cannot reach the primary
// store, plus the processor that replays them through the store.
//
// Each enqueue writes one uniquely named file, so concurrent enqueues never
// collide and need no locking. Drains assume a single consumer; the serve
// command provides that singleton discipline.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
)

// OrphanMaxAge is the unconditional age ceiling for queue entries. Entries
// older than this are removed regardless of consumer state; an update that
// failed to apply for a full day is not worth replaying into a checkpoint
// that has moved on without it.
const OrphanMaxAge = 24 * time.Hour

// UpdateType discriminates the payload of a queued update.
type UpdateType string

const (
	UpdateFile         UpdateType = "file"
	UpdateTodo         UpdateType = "todo"
	UpdatePlan         UpdateType = "plan"
	UpdateUserDecision UpdateType = "userDecision"
)

// Entry is one self-describing deferred mutation. The filename embeds a
// millisecond timestamp so directory listings sort roughly by submission
// order, but the embedded Timestamp is authoritative for ordering.
type Entry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	ProjectRoot string          `json:"projectRoot"`
	Type        UpdateType      `json:"updateType"`
	Payload     json.RawMessage `json:"payload"`
}

// FilePayload records one touched file.
type FilePayload struct {
	Path string `json:"path"`
	Role string `json:"role"`
}

// TodoPayload carries the writer's full todo list.
type TodoPayload struct {
	Todos []checkpoint.TodoItem `json:"todos"`
}

// PlanPayload carries cached plan text, optionally with an explicit task.
type PlanPayload struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
	Task    string `json:"task,omitempty"`
}

// DecisionPayload carries one or more answered questions. Multi-decision
// payloads are replayed one decision at a time, each under its own locked
// store update.
type DecisionPayload struct {
	Decisions []checkpoint.UserDecision `json:"decisions"`
}

// Queue is a durable, unordered staging area backed by a directory.
type Queue struct {
	dir    string
	logger *slog.Logger
}

// New creates a Queue rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating queue directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{dir: dir, logger: logger}, nil
}

// Dir returns the queue directory.
func (q *Queue) Dir() string {
	return q.dir
}

// Enqueue persists one pending update and returns its id. The filename is
// "{timestampMs}-{id}.json" so concurrent writers never collide.
func (q *Queue) Enqueue(projectRoot string, updateType UpdateType, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding queue payload: %w", err)
	}

	now := time.Now().UTC()
	entry := Entry{
		ID:          strings.SplitN(uuid.NewString(), "-", 2)[0],
		Timestamp:   now,
		ProjectRoot: projectRoot,
		Type:        updateType,
		Payload:     raw,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encoding queue entry: %w", err)
	}

	name := fmt.Sprintf("%d-%s.json", now.UnixMilli(), entry.ID)
	if err := os.WriteFile(filepath.Join(q.dir, name), data, 0o600); err != nil {
		return "", fmt.Errorf("writing queue entry: %w", err)
	}

	q.logger.Debug("update queued", "project", projectRoot, "type", updateType, "id", entry.ID)

	return entry.ID, nil
}

// DrainList reads every pending entry, silently skipping unparseable files,
// and returns the entries with their source filenames, both sorted by each
// entry's embedded timestamp.
func (q *Queue) DrainList() ([]Entry, []string, error) {
	dirEntries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing queue: %w", err)
	}

	type pending struct {
		entry Entry
		name  string
	}

	var all []pending
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			q.logger.Debug("skipping unreadable queue entry", "file", name, "error", err)
			continue
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			q.logger.Debug("skipping unparseable queue entry", "file", name, "error", err)
			continue
		}

		all = append(all, pending{entry: entry, name: name})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].entry.Timestamp.Before(all[j].entry.Timestamp)
	})

	entries := make([]Entry, len(all))
	names := make([]string, len(all))
	for i, p := range all {
		entries[i] = p.entry
		names[i] = p.name
	}

	return entries, names, nil
}

// Remove deletes one queue entry file. Already-gone files are not an error.
func (q *Queue) Remove(filename string) error {
	err := os.Remove(filepath.Join(q.dir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing queue entry %s: %w", filename, err)
	}
	return nil
}

// Clear deletes every pending entry and returns how many were removed.
func (q *Queue) Clear() (int, error) {
	dirEntries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("listing queue: %w", err)
	}

	removed := 0
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		if err := q.Remove(de.Name()); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// CleanupOrphans removes entries older than maxAge, whether or not they
// ever applied successfully. The age comes from the embedded timestamp;
// unparseable files fall back to their modification time so they cannot
// linger forever either.
func (q *Queue) CleanupOrphans(maxAge time.Duration) (int, error) {
	dirEntries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("listing queue: %w", err)
	}

	now := time.Now().UTC()
	removed := 0

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		var age time.Duration

		data, err := os.ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			continue
		}

		var entry Entry
		if jsonErr := json.Unmarshal(data, &entry); jsonErr == nil && !entry.Timestamp.IsZero() {
			age = now.Sub(entry.Timestamp)
		} else if info, statErr := de.Info(); statErr == nil {
			age = now.Sub(info.ModTime())
		} else {
			continue
		}

		if age <= maxAge {
			continue
		}

		if err := q.Remove(name); err != nil {
			q.logger.Warn("removing orphaned queue entry", "file", name, "error", err)
			continue
		}

		q.logger.Debug("orphaned queue entry removed", "file", name, "age", age.Round(time.Second))
		removed++
	}

	return removed, nil
}
