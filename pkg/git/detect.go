// Package git provides utilities for detecting git repository information.
package git

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const commandTimeout = 5 * time.Second

// Branch returns the current branch of the repository at projectRoot.
// It runs "git rev-parse --abbrev-ref HEAD" and returns the trimmed result.
// If the directory is not a git repository, or git is unavailable, it
// returns the empty string; callers decide their own fallback.
func Branch(projectRoot string) string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = projectRoot

	out, err := cmd.Output()
	if err != nil {
		return ""
	}

	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		// Detached head; a commit-ish is not a branch name.
		return ""
	}

	return branch
}
