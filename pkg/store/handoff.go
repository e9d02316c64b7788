package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
)

// Overrides is the caller-supplied partial context merged into a handoff
// snapshot at creation time. Supplied fields win over the inherited rolling
// checkpoint values.
type Overrides struct {
	Task      string
	Summary   string
	State     checkpoint.State
	Files     []checkpoint.FileRef
	Decisions []string
	Blockers  []string
	NextSteps []string
	Plan      *checkpoint.PlanCache
}

// CreateHandoff cuts an explicit, immutable snapshot from the project's
// rolling checkpoint (or from a fresh default when none exists), merges the
// overrides into its context, and persists it under a key embedding both
// the project hash and the new handoff id.
func (s *Store) CreateHandoff(projectRoot string, overrides Overrides) (*checkpoint.Handoff, error) {
	projectHash := checkpoint.ProjectHash(projectRoot)
	now := time.Now().UTC()

	base := s.ReadRolling(projectHash)
	if base == nil {
		base = s.newRolling(projectRoot, projectHash, now)
	}

	h := base.Clone()
	h.ID = newID()
	h.Created = now
	h.Updated = now
	h.TTL = s.handoffTTL

	overrides.applyTo(&h.Context)

	if err := s.writeDocument(s.handoffPath(projectHash, h.ID), h); err != nil {
		return nil, err
	}

	s.logger.Debug("handoff created", "project", projectRoot, "id", h.ID)

	return h, nil
}

func (o Overrides) applyTo(ctx *checkpoint.Context) {
	if o.Task != "" {
		ctx.Task = o.Task
	}
	if o.Summary != "" {
		ctx.Summary = o.Summary
	}
	if o.State != "" {
		ctx.State = o.State
	}
	if o.Files != nil {
		ctx.Files = append([]checkpoint.FileRef{}, o.Files...)
	}
	if o.Decisions != nil {
		ctx.Decisions = append([]string{}, o.Decisions...)
	}
	if o.Blockers != nil {
		ctx.Blockers = append([]string{}, o.Blockers...)
	}
	if o.NextSteps != nil {
		ctx.NextSteps = append([]string{}, o.NextSteps...)
	}
	if o.Plan != nil {
		plan := *o.Plan
		ctx.Plan = &plan
	}
}

// ReadHandoff looks a handoff up by id. With a project hash it tries the
// hash-qualified key first; either way it falls back to the legacy bare-id
// key written by older versions. Returns nil on any failure.
func (s *Store) ReadHandoff(id, projectHash string) *checkpoint.Handoff {
	if projectHash != "" {
		if h := s.readDocument(s.handoffPath(projectHash, id)); h != nil {
			return h
		}
	}
	return s.readDocument(s.legacyHandoffPath(id))
}

// ListHandoffs returns every handoff for the project, newest first.
//
// Filenames beginning with an 8-hex-char hash and a dot are skipped without
// being opened when the hash belongs to a different project; legacy bare-id
// files are opened and filtered on the embedded project hash.
func (s *Store) ListHandoffs(projectRoot string) ([]*checkpoint.Handoff, error) {
	projectHash := checkpoint.ProjectHash(projectRoot)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var handoffs []*checkpoint.Handoff
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasSuffix(name, rollingSuffix) {
			continue
		}

		if prefix, _, ok := strings.Cut(name, "."); ok && checkpoint.IsProjectHash(prefix) && prefix != projectHash {
			continue
		}

		h := s.readDocument(filepath.Join(s.dir, name))
		if h == nil || h.Project.Hash != projectHash {
			continue
		}

		handoffs = append(handoffs, h)
	}

	sort.Slice(handoffs, func(i, j int) bool {
		return handoffs[i].Updated.After(handoffs[j].Updated)
	})

	return handoffs, nil
}
