package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
)

// hashLen is the number of hex chars kept from the digest. Collisions are
// accepted as a low-probability risk, not actively resolved.
const hashLen = 8

var hashPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// ProjectHash returns the deterministic short digest of a project root path
// used as its storage key. The path is made absolute first so the same
// project hashes identically regardless of the caller's working directory.
func ProjectHash(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}

	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// IsProjectHash reports whether s looks like a project hash. Listing uses
// this to skip hash-qualified handoff files for other projects without
// opening them.
func IsProjectHash(s string) bool {
	return hashPattern.MatchString(s)
}
