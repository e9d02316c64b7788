package store

import (
	"time"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/exclude"
)

// Update is a partial mutation of a rolling checkpoint. Zero-value fields
// are left untouched; nil slices mean "not supplied" while non-nil empty
// slices replace.
type Update struct {
	// Task replaces context.task when non-empty.
	Task string

	// Summary replaces context.summary when non-empty.
	Summary string

	// State replaces context.state when non-empty.
	State checkpoint.State

	// Files are upserted by path into context.files; for an existing path
	// only the role changes. Entries matching the exclusion patterns are
	// dropped, from the incoming list and from what is already stored.
	Files []checkpoint.FileRef

	// Todos replaces the todo list wholesale; the most recent writer's full
	// list is authoritative.
	Todos []checkpoint.TodoItem

	// Plan replaces context.plan; CachedAt is stamped at merge time.
	Plan *checkpoint.PlanCache

	// Decision is appended to context.userDecisions, which stays bounded to
	// the most recent entries. A decision whose ID is already present is
	// skipped, which makes queue replays safe.
	Decision *checkpoint.UserDecision

	// Decisions, Blockers and NextSteps replace their fields when supplied.
	Decisions []string
	Blockers  []string
	NextSteps []string

	// References merges non-empty external pointers.
	References *checkpoint.References
}

// UpdateRolling loads (or creates) the rolling checkpoint for projectRoot,
// merges the update into it field by field, and persists the result, all
// under the project's rolling lock. An empty branch falls back to "main".
//
// Concurrent in-process callers serialize on the same lock as foreign
// processes do: the lock is the only mutual exclusion for this document.
func (s *Store) UpdateRolling(projectRoot, branch string, u Update) (*checkpoint.Checkpoint, error) {
	projectHash := checkpoint.ProjectHash(projectRoot)

	var result *checkpoint.Checkpoint
	err := s.locks.WithLock(lockPrefix+projectHash, s.lockOpts, func() error {
		now := time.Now().UTC()

		cp := s.ReadRolling(projectHash)
		if cp == nil {
			cp = s.newRolling(projectRoot, projectHash, now)
		}

		if branch == "" {
			branch = "main"
		}
		cp.Project.Branch = branch

		u.applyTo(cp, s.patterns, now)
		cp.Updated = now

		if err := s.writeDocument(s.rollingPath(projectHash), cp); err != nil {
			return err
		}

		result = cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("rolling checkpoint updated",
		"project", projectRoot,
		"hash", projectHash,
		"id", result.ID,
	)

	return result, nil
}

func (u Update) applyTo(cp *checkpoint.Checkpoint, patterns []string, now time.Time) {
	if u.Task != "" {
		cp.Context.Task = u.Task
	}
	if u.Summary != "" {
		cp.Context.Summary = u.Summary
	}
	if u.State != "" {
		cp.Context.State = u.State
	}

	if u.Files != nil {
		cp.Context.Files = mergeFiles(cp.Context.Files, u.Files, patterns)
	}

	if u.Todos != nil {
		cp.Todos = append([]checkpoint.TodoItem{}, u.Todos...)
	}

	if u.Plan != nil {
		plan := *u.Plan
		plan.CachedAt = now
		cp.Context.Plan = &plan
	}

	if u.Decision != nil {
		cp.Context.UserDecisions = appendDecision(cp.Context.UserDecisions, *u.Decision, now)
	}

	if u.Decisions != nil {
		cp.Context.Decisions = append([]string{}, u.Decisions...)
	}
	if u.Blockers != nil {
		cp.Context.Blockers = append([]string{}, u.Blockers...)
	}
	if u.NextSteps != nil {
		cp.Context.NextSteps = append([]string{}, u.NextSteps...)
	}

	if u.References != nil {
		if len(u.References.ExternalMemoryIDs) > 0 {
			cp.References.ExternalMemoryIDs = append([]string{}, u.References.ExternalMemoryIDs...)
		}
		if u.References.IssueTrackerID != "" {
			cp.References.IssueTrackerID = u.References.IssueTrackerID
		}
	}
}

// mergeFiles upserts incoming entries by path. Already-stored entries are
// re-filtered too, so tightening the exclusion patterns scrubs previously
// recorded paths on the next update.
func mergeFiles(existing, incoming []checkpoint.FileRef, patterns []string) []checkpoint.FileRef {
	pathOf := func(f checkpoint.FileRef) string { return f.Path }

	merged := exclude.Filter(existing, pathOf, patterns)
	if merged == nil {
		merged = []checkpoint.FileRef{}
	}

	for _, f := range exclude.Filter(incoming, pathOf, patterns) {
		replaced := false
		for i := range merged {
			if merged[i].Path == f.Path {
				merged[i].Role = f.Role
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, f)
		}
	}

	return merged
}

// appendDecision appends one user decision, de-duplicating by queue entry id
// and evicting the oldest entries beyond the bound.
func appendDecision(decisions []checkpoint.UserDecision, d checkpoint.UserDecision, now time.Time) []checkpoint.UserDecision {
	if d.ID != "" {
		for _, existing := range decisions {
			if existing.ID == d.ID {
				return decisions
			}
		}
	}

	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}

	decisions = append(decisions, d)
	if len(decisions) > checkpoint.MaxUserDecisions {
		decisions = decisions[len(decisions)-checkpoint.MaxUserDecisions:]
	}

	return decisions
}
