package travel

import (
	"fmt"
	"strings"
	"time"
)

// BucketKey derives the deterministic cache key for a (country, city) pair.
// The key embeds the calendar date and the hour of day in the server's local
// time, so two lookups for the same place within the same hour share a key
// and lookups in different hours do not. Freshness is therefore bounded to
// one hour by the key alone, with no per-read TTL check on the lookup path.
func BucketKey(country, city string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d",
		normalizePlace(country),
		normalizePlace(city),
		now.Format("2006-01-02"),
		now.Hour(),
	)
}

func normalizePlace(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
