// Package checkpoint defines the document model for the handoff store: the
// rolling per-project checkpoint, the immutable explicit handoff snapshot,
// and the helpers (project hashing, TTL parsing, schema validation) shared
// by the store and queue layers.
package checkpoint

import "time"

const (
	// SchemaVersion is the document schema version this code understands.
	// Documents with a higher version are treated as absent on read.
	SchemaVersion = 1

	// DefaultCheckpointTTL governs expiration of rolling checkpoints.
	DefaultCheckpointTTL = "24h"

	// DefaultHandoffTTL governs expiration of explicit handoffs, which
	// outlive the rolling checkpoint they were cut from.
	DefaultHandoffTTL = "7d"

	// MaxUserDecisions bounds context.userDecisions; oldest evicted first.
	MaxUserDecisions = 20
)

// State describes where the recorded work stands.
type State string

const (
	StateInProgress     State = "in_progress"
	StateBlocked        State = "blocked"
	StateReadyForReview State = "ready_for_review"
	StateCompleted      State = "completed"
)

// TodoStatus is the lifecycle state of a single todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Project identifies the project a checkpoint belongs to. Hash is the first
// 8 hex chars of a SHA-256 digest of the absolute root path and doubles as
// the document's storage key.
type Project struct {
	Root   string `json:"root"`
	Hash   string `json:"hash"`
	Branch string `json:"branch"`
}

// FileRef records one touched file and the role it played in the session.
// Entries are keyed by Path; a later update for the same path overwrites
// only Role.
type FileRef struct {
	Path string `json:"path"`
	Role string `json:"role"`
}

// UserDecision is one question the user answered during the session.
// ID, when present, carries the originating queue entry id so a replayed
// queue entry can be recognized and skipped.
type UserDecision struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id,omitempty"`
}

// PlanCache holds the cached text of the session's plan document.
type PlanCache struct {
	Path     string    `json:"path,omitempty"`
	CachedAt time.Time `json:"cachedAt"`
	Content  string    `json:"content"`
}

// Context is the working-state payload of a checkpoint.
type Context struct {
	Task          string         `json:"task,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	State         State          `json:"state"`
	Files         []FileRef      `json:"files"`
	Decisions     []string       `json:"decisions,omitempty"`
	Blockers      []string       `json:"blockers,omitempty"`
	NextSteps     []string       `json:"nextSteps,omitempty"`
	UserDecisions []UserDecision `json:"userDecisions,omitempty"`
	Plan          *PlanCache     `json:"plan,omitempty"`
}

// TodoItem mirrors the writer's todo tracker. The todo list is replaced
// wholesale on every update that supplies one.
type TodoItem struct {
	Content    string     `json:"content"`
	Status     TodoStatus `json:"status"`
	ActiveForm string     `json:"activeForm,omitempty"`
}

// References holds opaque pointers into external systems. The store never
// interprets them.
type References struct {
	ExternalMemoryIDs []string `json:"externalMemoryIds,omitempty"`
	IssueTrackerID    string   `json:"issueTrackerId,omitempty"`
}

// Checkpoint is the rolling, mutable per-project working-state document.
// Exactly one exists per project hash at any time.
type Checkpoint struct {
	ID         string     `json:"id"`
	Version    int        `json:"version"`
	Created    time.Time  `json:"created"`
	Updated    time.Time  `json:"updated"`
	TTL        string     `json:"ttl"`
	Project    Project    `json:"project"`
	Context    Context    `json:"context"`
	Todos      []TodoItem `json:"todos"`
	References References `json:"references,omitempty"`
}

// Handoff is an explicit, immutable-once-created snapshot of a checkpoint.
// Same shape, longer default TTL, stored under its own id rather than
// one-per-project.
type Handoff = Checkpoint

// Clone returns a deep copy of the checkpoint. CreateHandoff snapshots the
// rolling checkpoint through this so later merges never alias the snapshot.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}

	out := *c
	out.Context.Files = append([]FileRef(nil), c.Context.Files...)
	out.Context.Decisions = append([]string(nil), c.Context.Decisions...)
	out.Context.Blockers = append([]string(nil), c.Context.Blockers...)
	out.Context.NextSteps = append([]string(nil), c.Context.NextSteps...)
	out.Context.UserDecisions = append([]UserDecision(nil), c.Context.UserDecisions...)
	if c.Context.Plan != nil {
		plan := *c.Context.Plan
		out.Context.Plan = &plan
	}
	out.Todos = append([]TodoItem(nil), c.Todos...)
	out.References.ExternalMemoryIDs = append([]string(nil), c.References.ExternalMemoryIDs...)

	return &out
}
