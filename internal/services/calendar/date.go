package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"DripView/pkg/util"
)

// Zone is the reference timezone for every date key.
const Zone = "America/New_York"

// KeyLayout is the canonical YYYY-MM-DD date key layout.
const KeyLayout = "2006-01-02"

var (
	nyLoc      = mustLoadLocation(Zone)
	keyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("calendar: load %s: %v", name, err))
	}
	return loc
}

// Location returns the reference timezone.
func Location() *time.Location { return nyLoc }

// DateKey converts epoch seconds into the date observed in New York.
func DateKey(sec int64) string {
	return time.Unix(sec, 0).In(nyLoc).Format(KeyLayout)
}

// DateKeyOf converts an instant into the date observed in New York.
func DateKeyOf(t time.Time) string {
	return t.In(nyLoc).Format(KeyLayout)
}

// Today is the current date in New York.
func Today() string { return TodayAt(time.Now()) }

// TodayAt is the New York date at the given instant.
func TodayAt(now time.Time) string { return DateKeyOf(now) }

// IsDateKey reports whether s has the YYYY-MM-DD shape.
func IsDateKey(s string) bool { return keyPattern.MatchString(s) }

// YearsAgoBoundary moves key back by the given number of years. Dates that
// do not exist in the target year are clamped by walking the day back, never
// below the 28th. Malformed keys are returned unchanged.
func YearsAgoBoundary(key string, years int) string {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return key
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return clampToValidDate(year-years, month, day)
}

// FiveYearsAgoBoundary is the start of the trailing five year horizon.
func FiveYearsAgoBoundary(key string) string {
	return YearsAgoBoundary(key, 5)
}

func clampToValidDate(year, month, day int) string {
	if validDate(year, month, day) {
		return formatKey(year, month, day)
	}
	for d := day; d > 28; d-- {
		if validDate(year, month, d) {
			return formatKey(year, month, d)
		}
	}
	return formatKey(year, month, 28)
}

func validDate(year, month, day int) bool {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func formatKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// NormalizeBound turns a calendar bound into a date key. It accepts a date
// key as is, epoch seconds (milliseconds above 1e12) and date text; text
// without a zone is read in New York time.
func NormalizeBound(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if IsDateKey(s) {
		return s, true
	}
	t, ok := util.ParseTimeIn(s, nyLoc)
	if !ok {
		return "", false
	}
	return DateKeyOf(t), true
}

// UnixBound formats epoch seconds as a bound accepted by NormalizeBound.
func UnixBound(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return strconv.FormatInt(sec, 10)
}
