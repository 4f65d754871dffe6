package util

import (
	"strconv"
	"strings"
	"time"
)

// Zoned layouts carry their own offset; local layouts are read in the
// location passed to ParseTimeIn.
var (
	zonedLayouts = []string{time.RFC3339, time.RFC3339Nano, time.RFC1123Z, time.RFC1123}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 1e12

// ParseTimeIn tries RFC3339/RFC1123 variants, common date layouts (read in
// loc) and unix timestamps. Timestamps above 1e12 are treated as
// milliseconds. Returns (t, true) if any worked.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ts <= 0 {
			return time.Time{}, false
		}
		return UnixAuto(ts), true
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnixAuto converts epoch seconds, or milliseconds when ts exceeds 1e12.
func UnixAuto(ts int64) time.Time {
	if ts > millisThreshold {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}
