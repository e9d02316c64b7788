package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/git"
	"github.com/papercomputeco/handoff/pkg/store"
)

// gitCacheTTL bounds how long a branch lookup is reused across entries in
// consecutive drain passes.
const gitCacheTTL = 30 * time.Second

// Processor drains the queue into the checkpoint store. Each applied entry
// goes through the store's locked update path, so the processor inherits
// the same serialization guarantees as direct writers.
//
// Delivery is at-least-once: an entry is removed only after its update
// applied, so a crash between apply and removal replays the entry on the
// next drain. File upserts and todo/plan replacement are idempotent, and
// decision appends de-duplicate on the queue entry id carried into the
// stored decision.
type Processor struct {
	queue  *Queue
	store  *store.Store
	branch func(projectRoot string) string
	logger *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBranchLookup overrides how the processor resolves a project's branch.
// Defaults to a cached git lookup.
func WithBranchLookup(lookup func(string) string) ProcessorOption {
	return func(p *Processor) {
		if lookup != nil {
			p.branch = lookup
		}
	}
}

// WithProcessorLogger sets the logger. Defaults to a discard logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a Processor over the given queue and store.
func NewProcessor(q *Queue, s *store.Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		queue:  q,
		store:  s,
		branch: git.NewBranchCache(gitCacheTTL, nil).Get,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Result summarizes one drain pass.
type Result struct {
	// Processed counts entries that applied and were removed.
	Processed int

	// Errors counts entries that failed to apply; their files stay queued
	// for a future drain.
	Errors int

	// ByProject maps project roots to how many of their entries applied.
	ByProject map[string]int
}

// Drain reads the queue and applies every pending entry, grouped by project
// and in ascending timestamp order within each project. A failing entry is
// counted and left in place; it never blocks later entries or other
// projects.
func (p *Processor) Drain() Result {
	result := Result{ByProject: map[string]int{}}

	entries, names, err := p.queue.DrainList()
	if err != nil {
		p.logger.Warn("listing queue for drain", "error", err)
		result.Errors++
		return result
	}

	type pending struct {
		entry Entry
		name  string
	}

	// DrainList returns globally timestamp-sorted entries, so per-project
	// groups preserve ascending order.
	byProject := map[string][]pending{}
	for i, entry := range entries {
		byProject[entry.ProjectRoot] = append(byProject[entry.ProjectRoot], pending{entry: entry, name: names[i]})
	}

	for projectRoot, group := range byProject {
		branch := p.branch(projectRoot)

		for _, item := range group {
			if err := p.apply(projectRoot, branch, item.entry); err != nil {
				p.logger.Warn("applying queued update",
					"project", projectRoot,
					"type", item.entry.Type,
					"id", item.entry.ID,
					"error", err,
				)
				result.Errors++
				continue
			}

			if err := p.queue.Remove(item.name); err != nil {
				p.logger.Warn("removing applied queue entry", "file", item.name, "error", err)
				result.Errors++
				continue
			}

			result.Processed++
			result.ByProject[projectRoot]++
		}
	}

	return result
}

// apply converts one queue entry into store updates and applies them.
func (p *Processor) apply(projectRoot, branch string, entry Entry) error {
	updates, err := toUpdates(entry)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := p.store.UpdateRolling(projectRoot, branch, u); err != nil {
			return err
		}
	}

	return nil
}

// toUpdates maps a queue entry's payload to the store's partial update
// shape. Multi-decision payloads expand into one update per decision, each
// applied under its own lock acquisition.
func toUpdates(entry Entry) ([]store.Update, error) {
	switch entry.Type {
	case UpdateFile:
		var payload FilePayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding file payload: %w", err)
		}
		return []store.Update{{
			Files: []checkpoint.FileRef{{Path: payload.Path, Role: payload.Role}},
		}}, nil

	case UpdateTodo:
		var payload TodoPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding todo payload: %w", err)
		}
		return []store.Update{{
			Todos: payload.Todos,
			Task:  inferTaskFromTodos(payload.Todos),
		}}, nil

	case UpdatePlan:
		var payload PlanPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding plan payload: %w", err)
		}
		task := payload.Task
		if task == "" {
			task = inferTaskFromPlan(payload.Content)
		}
		return []store.Update{{
			Plan: &checkpoint.PlanCache{Path: payload.Path, Content: payload.Content},
			Task: task,
		}}, nil

	case UpdateUserDecision:
		var payload DecisionPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding decision payload: %w", err)
		}
		updates := make([]store.Update, 0, len(payload.Decisions))
		for i, d := range payload.Decisions {
			if d.ID == "" {
				// Stamp the queue entry id so a replay of this entry is
				// recognized and skipped by the store.
				d.ID = fmt.Sprintf("%s/%d", entry.ID, i)
			}
			updates = append(updates, store.Update{Decision: &d})
		}
		return updates, nil

	default:
		return nil, fmt.Errorf("unknown update type %q", entry.Type)
	}
}

// inferTaskFromTodos takes the first in_progress item as the current task.
func inferTaskFromTodos(todos []checkpoint.TodoItem) string {
	for _, todo := range todos {
		if todo.Status == checkpoint.TodoInProgress {
			if todo.ActiveForm != "" {
				return todo.ActiveForm
			}
			return todo.Content
		}
	}
	return ""
}

// inferTaskFromPlan takes the first markdown heading of the plan text.
func inferTaskFromPlan(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "#"); ok {
			return strings.TrimSpace(strings.TrimLeft(rest, "#"))
		}
	}
	return ""
}
