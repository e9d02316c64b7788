// Package dotdir manages the .handoff/ and ~/.handoff directories.
//
// The handoff directory holds the rolling checkpoint documents, explicit
// handoff snapshots, their lock files, and the fallback queue subdirectory.
// Lock files live alongside the documents they protect.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the handoff directory.
	dirName = ".handoff"

	// queueDirName is the fallback queue subdirectory inside the handoff
	// directory.
	queueDirName = "queue"

	// EnvDir overrides the storage directory location.
	EnvDir = "HANDOFF_DIR"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .handoff/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. HANDOFF_DIR environment variable
//  3. Local ./.handoff/ dir
//  4. Home ~/.handoff/ dir (created if none of the above resolve)
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case os.Getenv(EnvDir) != "":
		dir = os.Getenv(EnvDir)

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating handoff directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// QueueDir returns the absolute path to the fallback queue directory under
// the resolved storage directory, creating it if needed. The queue lives in
// its own subdirectory so document scans never pick up pending entries.
func (m *Manager) QueueDir(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(target, queueDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating queue directory %s: %w", dir, err)
	}

	return dir, nil
}

// localDirExists checks whether a .handoff/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
