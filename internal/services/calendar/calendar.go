package calendar

import (
	"sort"

	"DripView/internal/domain/models"
)

// Options bounds the calendar. Empty bounds default to the earliest observed
// date and to today in New York.
type Options struct {
	Start string
	End   string
	// Today overrides the current date, mostly for tests.
	Today string
}

// Build returns the ascending, de-duplicated union of New York dates that
// have a bar in any of the series, filtered to [Start, End]. No data yields
// an empty calendar.
func Build(series [][]models.DailyBar, opts Options) []string {
	set := make(map[string]struct{})
	for _, bars := range series {
		for _, b := range bars {
			if b.Timestamp > 0 {
				set[DateKey(b.Timestamp)] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return []string{}
	}

	all := make([]string, 0, len(set))
	for d := range set {
		all = append(all, d)
	}
	sort.Strings(all)

	start := all[0]
	if k, ok := NormalizeBound(opts.Start); ok {
		start = k
	}
	end := opts.Today
	if end == "" {
		end = Today()
	}
	if k, ok := NormalizeBound(opts.End); ok {
		end = k
	}

	out := make([]string, 0, len(all))
	for _, d := range all {
		if d >= start && d <= end {
			out = append(out, d)
		}
	}
	return out
}

// DedupeBars keeps at most one bar per New York date, in first-seen order.
// A later bar replaces an earlier one for the same date only when the
// earlier bar has no close and the later one does.
func DedupeBars(bars []models.DailyBar) []models.DailyBar {
	out := make([]models.DailyBar, 0, len(bars))
	pos := make(map[string]int, len(bars))
	for _, b := range bars {
		key := DateKey(b.Timestamp)
		i, ok := pos[key]
		if !ok {
			pos[key] = len(out)
			out = append(out, b)
			continue
		}
		if !out[i].Close.Valid && b.Close.Valid {
			out[i] = b
		}
	}
	return out
}
