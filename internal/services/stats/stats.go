package stats

import (
	"github.com/guregu/null/v6"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
)

// LastYearWindow is the number of trailing rows treated as one trading year.
const LastYearWindow = 255

// derived holds the per-day series every aggregate is computed over.
type derived struct {
	close    []null.Float
	intraday []null.Float
	returns  map[int][]null.Float
}

func derive(bars []models.DailyBar) derived {
	d := derived{
		close:    Closes(bars),
		intraday: IntradayVariation(bars),
		returns:  make(map[int][]null.Float, len(models.ReturnWindows)),
	}
	for _, w := range models.ReturnWindows {
		d.returns[w] = ReturnSeries(d.close, w)
	}
	return d
}

func (d derived) tail(n int) derived {
	t := derived{
		close:    tail(d.close, n),
		intraday: tail(d.intraday, n),
		returns:  make(map[int][]null.Float, len(d.returns)),
	}
	for w, xs := range d.returns {
		t.returns[w] = tail(xs, n)
	}
	return t
}

func (d derived) bucket(fn func([]null.Float) null.Float) models.StatsBucket {
	b := models.StatsBucket{
		Close:             fn(d.close),
		IntradayVariation: fn(d.intraday),
	}
	for _, w := range models.ReturnWindows {
		b.ReturnsFrom.Set(w, fn(d.returns[w]))
	}
	return b
}

func (d derived) aggregate(withAverage bool) models.StatsAgg {
	agg := models.StatsAgg{
		Min: d.bucket(Min),
		Max: d.bucket(Max),
		Std: d.bucket(Std),
		Var: d.bucket(Variance),
	}
	if withAverage {
		avg := d.bucket(Mean)
		agg.Average = &avg
	}
	return agg
}

// Compute derives current, last-year and all-time statistics from a
// chronological bar sequence. Duplicate bars for one New York date count
// once.
func Compute(bars []models.DailyBar) models.SymbolStats {
	d := derive(calendar.DedupeBars(bars))
	return models.SymbolStats{
		Current:  d.bucket(Current),
		LastYear: d.tail(LastYearWindow).aggregate(true),
		AllTime:  d.aggregate(false),
	}
}
