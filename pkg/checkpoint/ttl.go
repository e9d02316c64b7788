package checkpoint

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultTTL is what an unknown or unparseable TTL string falls back to.
// Cleanup must never interpret a malformed TTL as "immediately expired".
const DefaultTTL = 24 * time.Hour

var ttlPattern = regexp.MustCompile(`^(\d+)([hdwm])$`)

// ParseTTL converts a duration string like "24h", "7d", "2w" or "1m" into a
// time.Duration. Months are approximated as 30 days. Unknown formats return
// DefaultTTL.
func ParseTTL(ttl string) time.Duration {
	m := ttlPattern.FindStringSubmatch(ttl)
	if m == nil {
		return DefaultTTL
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultTTL
	}

	switch m[2] {
	case "h":
		return time.Duration(n) * time.Hour
	case "d":
		return time.Duration(n) * 24 * time.Hour
	case "w":
		return time.Duration(n) * 7 * 24 * time.Hour
	case "m":
		return time.Duration(n) * 30 * 24 * time.Hour
	default:
		return DefaultTTL
	}
}

// Expired reports whether a document last touched at updated with the given
// TTL string has outlived it.
func Expired(updated time.Time, ttl string, now time.Time) bool {
	return now.Sub(updated) > ParseTTL(ttl)
}
