package drip

import (
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
)

// SanitizeBars drops bars with a non-positive timestamp or a non-finite
// field. Non-positive prices and negative volume are provider placeholders
// and are treated as missing.
func SanitizeBars(bars []models.DailyBar) []models.DailyBar {
	out := make([]models.DailyBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp <= 0 {
			continue
		}
		if !finite(b.Open) || !finite(b.High) || !finite(b.Low) ||
			!finite(b.Close) || !finite(b.Volume) || !finite(b.AdjClose) {
			continue
		}
		b.Open = positive(b.Open)
		b.High = positive(b.High)
		b.Low = positive(b.Low)
		b.Close = positive(b.Close)
		b.AdjClose = positive(b.AdjClose)
		if b.Volume.Valid && b.Volume.Float64 < 0 {
			b.Volume = null.Float{}
		}
		out = append(out, b)
	}
	return out
}

// SanitizeSplits keeps splits with a positive finite ratio.
func SanitizeSplits(splits []models.SplitEvent) []models.SplitEvent {
	out := make([]models.SplitEvent, 0, len(splits))
	for _, s := range splits {
		if s.Timestamp <= 0 || !isFinite(s.Ratio) || s.Ratio <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SanitizeDividends keeps dividends with a positive finite amount, sorted
// ascending by timestamp.
func SanitizeDividends(divs []models.DividendEvent) []models.DividendEvent {
	out := make([]models.DividendEvent, 0, len(divs))
	for _, d := range divs {
		if d.Timestamp <= 0 || !isFinite(d.Amount) || d.Amount <= 0 {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// IndexBars keys bars by New York date. On duplicates the first bar is kept
// unless it has no close and a later one does.
func IndexBars(bars []models.DailyBar) map[string]models.DailyBar {
	deduped := calendar.DedupeBars(bars)
	idx := make(map[string]models.DailyBar, len(deduped))
	for _, b := range deduped {
		idx[calendar.DateKey(b.Timestamp)] = b
	}
	return idx
}

type datedAmount struct {
	date   string
	amount float64
}

// splitsByDate groups ratios per date, preserving input order within a day.
func splitsByDate(splits []models.SplitEvent) map[string][]float64 {
	m := make(map[string][]float64, len(splits))
	for _, s := range splits {
		key := calendar.DateKey(s.Timestamp)
		m[key] = append(m[key], s.Ratio)
	}
	return m
}

// dividendsByDate converts sorted dividends to date keyed entries.
func dividendsByDate(divs []models.DividendEvent) []datedAmount {
	out := make([]datedAmount, 0, len(divs))
	for _, d := range divs {
		out = append(out, datedAmount{date: calendar.DateKey(d.Timestamp), amount: d.Amount})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].date < out[j].date })
	return out
}

func finite(v null.Float) bool {
	return !v.Valid || isFinite(v.Float64)
}

func positive(v null.Float) null.Float {
	if v.Valid && v.Float64 <= 0 {
		return null.Float{}
	}
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
