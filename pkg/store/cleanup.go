package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
)

// CleanupExpired removes every document, rolling checkpoint or handoff,
// whose age since its last update exceeds its TTL. Files that cannot be
// parsed are skipped, never deleted.
func (s *Store) CleanupExpired() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	removed := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Debug("cleanup read failed", "path", path, "error", err)
			continue
		}

		// Only the expiry-relevant fields matter here; a document that fails
		// full schema validation still ages out on its own terms.
		var doc struct {
			Updated time.Time `json:"updated"`
			TTL     string    `json:"ttl"`
		}
		if err := json.Unmarshal(data, &doc); err != nil || doc.Updated.IsZero() {
			continue
		}

		if !checkpoint.Expired(doc.Updated, doc.TTL, now) {
			continue
		}

		if err := os.Remove(path); err != nil {
			s.logger.Warn("cleanup remove failed", "path", path, "error", err)
			continue
		}

		s.logger.Debug("expired document removed", "path", path, "ttl", doc.TTL)
		removed++
	}

	return removed, nil
}
