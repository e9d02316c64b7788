// Package flock implements a filesystem-backed mutual-exclusion primitive
// for coordinating short-lived writer processes that share no runtime.
//
// A lock is a file whose existence is the lock: it is created with
// O_CREATE|O_EXCL so two racing processes can never both succeed, and it
// holds a small JSON token recording who took it and when. Staleness is
// purely time-based; the recorded PID is diagnostic only, since checking
// whether an arbitrary PID is alive is not portable.
package flock

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const (
	// DefaultTimeout bounds how long Acquire waits before giving up.
	DefaultTimeout = 5 * time.Second

	// DefaultRetryDelay is the initial backoff between acquisition attempts.
	DefaultRetryDelay = 50 * time.Millisecond

	// maxRetryDelay caps the exponential backoff.
	maxRetryDelay = 500 * time.Millisecond

	// staleMultiplier scales the acquirer's own timeout into the age beyond
	// which an existing lock is presumed abandoned.
	staleMultiplier = 2
)

var sanitizePattern = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Token is the persisted content of a lock file.
type Token struct {
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
	Resource  string    `json:"resource"`
}

// Options tune a single acquisition attempt.
type Options struct {
	// Timeout bounds the total time Acquire may spend. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// RetryDelay is the initial sleep between attempts, scaled by 1.5x per
	// retry up to a cap. Zero means DefaultRetryDelay.
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// ErrLockTimeout is returned when acquisition exceeds its deadline.
type ErrLockTimeout struct {
	Resource string
	Elapsed  time.Duration
}

func (e ErrLockTimeout) Error() string {
	return fmt.Sprintf("timed out acquiring lock %q after %s", e.Resource, e.Elapsed.Round(time.Millisecond))
}

// Manager acquires and releases named locks inside a single directory.
// Locks live alongside the documents they protect.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates a lock manager rooted at dir. The directory must
// already exist; the store that owns it creates it.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{dir: dir, logger: logger}
}

// Path returns the lock file path for a resource name. Non-alphanumeric
// characters are replaced so any resource name maps to a safe filename.
func (m *Manager) Path(resource string) string {
	return filepath.Join(m.dir, sanitizePattern.ReplaceAllString(resource, "_")+".lock")
}

// Acquire takes the named lock, retrying with exponential backoff until the
// timeout elapses. An existing lock older than twice the acquirer's timeout
// is treated as stale, forcibly removed, and retried immediately.
func (m *Manager) Acquire(resource string, opts Options) error {
	opts = opts.withDefaults()
	path := m.Path(resource)
	start := time.Now()
	delay := opts.RetryDelay

	for {
		err := m.tryCreate(path, resource)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating lock %q: %w", resource, err)
		}

		if m.takeoverIfStale(path, resource, opts.Timeout) {
			// Stale holder evicted; retry immediately without backoff.
			continue
		}

		elapsed := time.Since(start)
		if elapsed >= opts.Timeout {
			return ErrLockTimeout{Resource: resource, Elapsed: elapsed}
		}

		time.Sleep(delay)
		delay = min(delay*3/2, maxRetryDelay)
	}
}

// tryCreate attempts the atomic exclusive creation of the lock file and
// writes the token into it.
func (m *Manager) tryCreate(path, resource string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	token := Token{
		PID:       os.Getpid(),
		Timestamp: time.Now().UTC(),
		Resource:  resource,
	}

	data, err := json.Marshal(token)
	if err != nil {
		f.Close()
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// takeoverIfStale reads the existing lock token and forcibly removes the
// lock when its age exceeds the staleness window. A lock file that cannot
// be read or parsed is present-but-unparseable: without a timestamp it
// cannot be judged stale, so the caller keeps retrying until timeout.
func (m *Manager) takeoverIfStale(path, resource string, timeout time.Duration) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return false
	}

	age := time.Since(token.Timestamp)
	if age <= staleMultiplier*timeout {
		return false
	}

	m.logger.Warn("removing stale lock",
		"resource", resource,
		"age", age.Round(time.Millisecond),
		"holder_pid", token.PID,
	)

	// Losing this race to another acquirer is fine: the next create
	// attempt resolves the winner.
	_ = os.Remove(path)

	return true
}

// Release deletes the lock file. It is idempotent: releasing a lock that is
// already gone succeeds.
func (m *Manager) Release(resource string) error {
	err := os.Remove(m.Path(resource))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("releasing lock %q: %w", resource, err)
	}
	return nil
}

// WithLock runs fn while holding the named lock, releasing it on every exit
// path including panics.
func (m *Manager) WithLock(resource string, opts Options, fn func() error) error {
	if err := m.Acquire(resource, opts); err != nil {
		return err
	}
	defer func() {
		if err := m.Release(resource); err != nil {
			m.logger.Warn("releasing lock", "resource", resource, "error", err)
		}
	}()

	return fn()
}
