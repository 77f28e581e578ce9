// internal/time_parser.go
// ------------------------
// Helpers for turning server-supplied time values into durations. The
// Method API sends Retry-After either as delta-seconds ("5") or as an HTTP
// date (RFC 7231); both forms are accepted here.
package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter converts a Retry-After header value into a wait duration
// relative to now. It returns 0 for an empty, unparsable, or already-passed
// value.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Seconds rounds a duration up to whole seconds for reporting back to
// callers; sub-second waits still read as one second.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}
