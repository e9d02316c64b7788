package git

import (
	"sync"
	"time"
)

// BranchCache memoizes branch lookups for a single key at a time. It exists
// as an explicit object rather than module-level state so the long-running
// drain service can inject one per processor and tests can Reset it.
type BranchCache struct {
	mu sync.Mutex

	key       string
	data      string
	timestamp time.Time

	ttl    time.Duration
	lookup func(projectRoot string) string
}

// NewBranchCache creates a cache over lookup with the given freshness
// window. A nil lookup defaults to Branch.
func NewBranchCache(ttl time.Duration, lookup func(string) string) *BranchCache {
	if lookup == nil {
		lookup = Branch
	}
	return &BranchCache{ttl: ttl, lookup: lookup}
}

// Get returns the branch for projectRoot, consulting the underlying lookup
// only when the cached entry is for a different root or has aged out.
func (c *BranchCache) Get(projectRoot string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == projectRoot && time.Since(c.timestamp) < c.ttl {
		return c.data
	}

	c.key = projectRoot
	c.data = c.lookup(projectRoot)
	c.timestamp = time.Now()

	return c.data
}

// Reset clears the cached entry.
func (c *BranchCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = ""
	c.data = ""
	c.timestamp = time.Time{}
}
