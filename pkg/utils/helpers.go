package utils

import "time"

// ParseDuration parses a duration string like "5m", falling back to def when
// empty or unparseable.
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}
