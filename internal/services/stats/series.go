package stats

import (
	"github.com/guregu/null/v6"

	"DripView/internal/domain/models"
)

// IntradayVariation is (high-low)/close per bar, null when an input is
// missing or close is zero.
func IntradayVariation(bars []models.DailyBar) []null.Float {
	out := make([]null.Float, len(bars))
	for i, b := range bars {
		if !b.High.Valid || !b.Low.Valid || !b.Close.Valid || b.Close.Float64 == 0 {
			continue
		}
		out[i] = null.FloatFrom((b.High.Float64 - b.Low.Float64) / b.Close.Float64)
	}
	return out
}

// Closes extracts the close column.
func Closes(bars []models.DailyBar) []null.Float {
	out := make([]null.Float, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ReturnSeries is close[i]/close[i-window]-1, null without a usable pair.
func ReturnSeries(closes []null.Float, window int) []null.Float {
	out := make([]null.Float, len(closes))
	if window <= 0 {
		return out
	}
	for i := window; i < len(closes); i++ {
		cur, past := closes[i], closes[i-window]
		if !cur.Valid || !past.Valid || cur.Float64 == 0 || past.Float64 == 0 {
			continue
		}
		out[i] = null.FloatFrom(cur.Float64/past.Float64 - 1)
	}
	return out
}

func tail(xs []null.Float, n int) []null.Float {
	if n <= 0 {
		return nil
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
