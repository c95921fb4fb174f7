package timerange

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Last1h covers the hour that ends now
	Last1h = "last-1h"
	// Last24h covers the 24 hours that end now
	Last24h = "last-24h"
	// Last7d covers the 7 days that end now
	Last7d = "last-7d"
	// Last30d covers the 30 days that end now
	Last30d = "last-30d"
	// AllTime starts at the epoch sentinel and ends now
	AllTime = "all-time"

	yearPrefix = "year-"
	minYear    = 1970
	maxYear    = 9999
)

// Epoch is the start of the all-time range. No realistic data predates it.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

var relativeDurations = map[string]time.Duration{
	Last1h:  time.Hour,
	Last24h: 24 * time.Hour,
	Last7d:  7 * 24 * time.Hour,
	Last30d: 30 * 24 * time.Hour,
}

var aliases = map[string]string{
	"1h":  Last1h,
	"24h": Last24h,
	"7d":  Last7d,
	"30d": Last30d,
	"all": AllTime,
}

// Resolve maps a range token into absolute UTC instants. Unknown tokens resolve into the
// zero-width range [now, now], which is valid input that yields no points.
func Resolve(token string, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	token = canonical(token)

	if d, ok := relativeDurations[token]; ok {
		return now.Add(-d), now
	}
	if token == AllTime {
		return Epoch, now
	}
	if year, ok := parseYear(token); ok {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
		return start, end
	}

	return now, now
}

// IsKnown returns true if the token resolves to something else than the empty fallback range
func IsKnown(token string) bool {
	token = canonical(token)
	if _, ok := relativeDurations[token]; ok {
		return true
	}
	if token == AllTime {
		return true
	}

	_, ok := parseYear(token)
	return ok
}

// Label returns the human readable text of a range token
func Label(token string) string {
	switch canonical(token) {
	case Last1h:
		return "Last hour"
	case Last24h:
		return "Last 24 hours"
	case Last7d:
		return "Last 7 days"
	case Last30d:
		return "Last 30 days"
	case AllTime:
		return "All time"
	}

	year, ok := parseYear(canonical(token))
	if ok {
		return fmt.Sprintf("Year %d", year)
	}

	return token
}

func canonical(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	alias, ok := aliases[token]
	if ok {
		return alias
	}

	return token
}

func parseYear(token string) (int, bool) {
	if !strings.HasPrefix(token, yearPrefix) {
		return 0, false
	}

	year, err := strconv.Atoi(strings.TrimPrefix(token, yearPrefix))
	if err != nil {
		return 0, false
	}
	if year < minYear || year > maxYear {
		return 0, false
	}

	return year, true
}
