package queue

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/git"
	"github.com/papercomputeco/handoff/pkg/store"
)

func defaultBranchLookup() func(string) string {
	return git.NewBranchCache(gitCacheTTL, nil).Get
}

// Recorder is the write entry point for short-lived writer processes: it
// tries the store directly and, when the storage directory rejects the
// write with a permission error, records the update in the fallback queue
// instead. Any other failure propagates; only permission problems mean
// "defer to a process that can reach the store".
type Recorder struct {
	store  *store.Store
	queue  *Queue
	branch func(projectRoot string) string
	logger *slog.Logger
}

// NewRecorder composes a store and queue into a fallback-aware writer.
// branch may be nil, in which case each record resolves the branch via git.
func NewRecorder(s *store.Store, q *Queue, branch func(string) string, logger *slog.Logger) *Recorder {
	if branch == nil {
		branch = defaultBranchLookup()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{store: s, queue: q, branch: branch, logger: logger}
}

// RecordFile records one touched file.
func (r *Recorder) RecordFile(projectRoot string, file checkpoint.FileRef) error {
	return r.record(projectRoot,
		store.Update{Files: []checkpoint.FileRef{file}},
		UpdateFile,
		FilePayload{Path: file.Path, Role: file.Role},
	)
}

// RecordTodos records the writer's full todo list.
func (r *Recorder) RecordTodos(projectRoot string, todos []checkpoint.TodoItem) error {
	return r.record(projectRoot,
		store.Update{Todos: todos, Task: inferTaskFromTodos(todos)},
		UpdateTodo,
		TodoPayload{Todos: todos},
	)
}

// RecordPlan records cached plan text.
func (r *Recorder) RecordPlan(projectRoot string, plan checkpoint.PlanCache) error {
	return r.record(projectRoot,
		store.Update{Plan: &plan, Task: inferTaskFromPlan(plan.Content)},
		UpdatePlan,
		PlanPayload{Path: plan.Path, Content: plan.Content},
	)
}

// RecordDecision records one answered question.
func (r *Recorder) RecordDecision(projectRoot string, decision checkpoint.UserDecision) error {
	return r.record(projectRoot,
		store.Update{Decision: &decision},
		UpdateUserDecision,
		DecisionPayload{Decisions: []checkpoint.UserDecision{decision}},
	)
}

func (r *Recorder) record(projectRoot string, u store.Update, updateType UpdateType, payload any) error {
	_, err := r.store.UpdateRolling(projectRoot, r.branch(projectRoot), u)
	if err == nil {
		return nil
	}

	if !store.IsPermissionDenied(err) {
		return err
	}

	r.logger.Debug("store unreachable, queueing update",
		"project", projectRoot,
		"type", updateType,
		"error", err,
	)

	if _, qerr := r.queue.Enqueue(projectRoot, updateType, payload); qerr != nil {
		return fmt.Errorf("store write failed (%w) and enqueue failed: %w", err, qerr)
	}

	return nil
}
