package drip

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
)

func fixedClock(date string) func() time.Time {
	t, err := time.ParseInLocation(calendar.KeyLayout, date, calendar.Location())
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(16 * time.Hour) }
}

// ts returns the provider style timestamp (NY open) for a date key.
func ts(date string) int64 {
	t, err := time.ParseInLocation(calendar.KeyLayout, date, calendar.Location())
	if err != nil {
		panic(err)
	}
	return t.Add(9*time.Hour + 30*time.Minute).Unix()
}

func dayBar(date string, open, close float64) models.DailyBar {
	b := models.DailyBar{Timestamp: ts(date)}
	if !math.IsNaN(open) {
		b.Open = null.FloatFrom(open)
	}
	if !math.IsNaN(close) {
		b.Close = null.FloatFrom(close)
	}
	return b
}

var none = math.NaN()

func newEngine() *Engine {
	return New(WithClock(fixedClock("2024-12-31")))
}

func floats(t *testing.T, xs []null.Float) []any {
	t.Helper()
	out := make([]any, len(xs))
	for i, x := range xs {
		if x.Valid {
			out[i] = x.Float64
		} else {
			out[i] = nil
		}
	}
	return out
}

func TestComputeTwoDayScenario(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol: "AAA",
		Bars:   []models.DailyBar{dayBar("2024-01-02", 99, 100), dayBar("2024-01-03", 105, 110)},
	}}

	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, out.Dates)
	require.Len(t, out.Series, 1)
	s := out.Series[0]
	assert.Equal(t, "AAA", s.Symbol)
	assert.Equal(t, []any{1000.0, 1100.0}, floats(t, s.Value))
	require.True(t, s.Pct[0].Valid)
	require.True(t, s.Pct[1].Valid)
	assert.Equal(t, 0.0, s.Pct[0].Float64)
	assert.InDelta(t, 0.1, s.Pct[1].Float64, 1e-12)
}

func TestComputeIsIdempotent(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol: "AAA",
		Bars: []models.DailyBar{
			dayBar("2024-01-02", 10, 10.37),
			dayBar("2024-01-03", 10.5, 10.91),
			dayBar("2024-01-04", 10.2, 10.13),
		},
		Splits:    []models.SplitEvent{{Timestamp: ts("2024-01-03"), Ratio: 1.5}},
		Dividends: []models.DividendEvent{{Timestamp: ts("2024-01-04"), Amount: 0.173}},
	}}
	e := newEngine()
	opts := models.DripOptions{Base: 1234.5, Horizon: models.HorizonMax}

	a, err := e.Compute(in, opts)
	require.NoError(t, err)
	b, err := e.Compute(in, opts)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestDividendUsesPriorCloseSharesOnSplitDay(t *testing.T) {
	tests := []struct {
		name       string
		dayTwoOpen float64
		wantShares []float64
	}{
		// No open on the split day: cash waits for the next open.
		{name: "reinvest next day", dayTwoOpen: none, wantShares: []float64{100, 200, 202}},
		// Open on the split day: cash is reinvested the same day.
		{name: "reinvest same day", dayTwoOpen: 50, wantShares: []float64{100, 202, 202}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []models.SymbolHistory{{
				Symbol: "SPL",
				Bars: []models.DailyBar{
					dayBar("2024-01-02", 100, 100),
					dayBar("2024-01-03", tt.dayTwoOpen, 50),
					dayBar("2024-01-04", 50, 50),
				},
				Splits:    []models.SplitEvent{{Timestamp: ts("2024-01-03"), Ratio: 2}},
				Dividends: []models.DividendEvent{{Timestamp: ts("2024-01-03"), Amount: 1}},
			}}

			out, err := newEngine().Compute(in, models.DripOptions{Base: 10000, Horizon: models.HorizonMax})
			require.NoError(t, err)

			closes := []float64{100, 50, 50}
			for i, want := range tt.wantShares {
				require.True(t, out.Series[0].Value[i].Valid)
				assert.InDelta(t, want*closes[i], out.Series[0].Value[i].Float64, 1e-9, "day %d", i)
			}
		})
	}
}

func TestSameDaySplitsCompound(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol: "SPL",
		Bars:   []models.DailyBar{dayBar("2024-01-02", 10, 10), dayBar("2024-01-03", 10, 10)},
		Splits: []models.SplitEvent{
			{Timestamp: ts("2024-01-03"), Ratio: 2},
			{Timestamp: ts("2024-01-03"), Ratio: 3},
		},
	}}

	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)
	// 100 shares * 6 at close 10
	assert.InDelta(t, 6000.0, out.Series[0].Value[1].Float64, 1e-9)
}

func TestPendingCashAccumulatesAcrossDaysWithoutOpen(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol: "DIV",
		Bars: []models.DailyBar{
			dayBar("2024-01-02", 10, 10),
			dayBar("2024-01-03", none, 10),
			dayBar("2024-01-04", none, 10),
			dayBar("2024-01-05", 20, 20),
		},
		Dividends: []models.DividendEvent{
			{Timestamp: ts("2024-01-03"), Amount: 1},
			{Timestamp: ts("2024-01-04"), Amount: 1},
		},
	}}

	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)

	v := floats(t, out.Series[0].Value)
	// cash is held outside the position until an open is known
	assert.Equal(t, []any{1000.0, 1000.0, 1000.0}, v[:3])
	// 100 shares + 200 cash / 20 open = 110 shares at close 20
	assert.InDelta(t, 2200.0, v[3].(float64), 1e-9)
}

func TestDividendsBeforeStartAreConsumedWithoutCash(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol:    "DIV",
		Bars:      []models.DailyBar{dayBar("2024-01-02", 10, 10), dayBar("2024-01-03", 10, 10)},
		Dividends: []models.DividendEvent{{Timestamp: ts("2023-12-15"), Amount: 5}},
	}}

	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)
	assert.Equal(t, []any{1000.0, 1000.0}, floats(t, out.Series[0].Value))
}

func TestValuesNullBeforeFirstCloseAndOnMissingClose(t *testing.T) {
	in := []models.SymbolHistory{
		{
			Symbol: "EARLY",
			Bars: []models.DailyBar{
				dayBar("2024-01-02", 10, 10),
				dayBar("2024-01-03", 10, 11),
				dayBar("2024-01-04", 10, none),
				dayBar("2024-01-05", 10, 12),
			},
		},
		{
			Symbol: "LATE",
			Bars:   []models.DailyBar{dayBar("2024-01-04", 20, 20), dayBar("2024-01-05", 20, 25)},
		},
	}

	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)
	require.Len(t, out.Dates, 4)

	for _, s := range out.Series {
		require.Len(t, s.Value, len(out.Dates))
		require.Len(t, s.Pct, len(out.Dates))
		for i := range s.Value {
			assert.Equal(t, s.Value[i].Valid, s.Pct[i].Valid, "%s index %d", s.Symbol, i)
		}
	}
	assert.Equal(t, []any{1000.0, 1100.0, nil, 1200.0}, floats(t, out.Series[0].Value))
	assert.Equal(t, []any{nil, nil, 1000.0, 1250.0}, floats(t, out.Series[1].Value))
}

func TestFiveYearHorizonClipsCalendar(t *testing.T) {
	e := New(WithClock(fixedClock("2024-02-29")))
	in := []models.SymbolHistory{{
		Symbol: "OLD",
		Bars: []models.DailyBar{
			dayBar("2019-02-27", 10, 10),
			dayBar("2019-02-28", 10, 10),
			dayBar("2019-03-01", 10, 11),
		},
	}}

	out, err := e.Compute(in, models.DripOptions{Base: 1000, Horizon: models.Horizon5Y})
	require.NoError(t, err)
	assert.Equal(t, []string{"2019-02-28", "2019-03-01"}, out.Dates)

	out, err = e.Compute(in, models.DripOptions{Base: 1000, Horizon: models.HorizonMax})
	require.NoError(t, err)
	assert.Len(t, out.Dates, 3)
}

func TestExplicitStartOverridesHorizon(t *testing.T) {
	in := []models.SymbolHistory{{
		Symbol: "AAA",
		Bars:   []models.DailyBar{dayBar("2024-01-02", 10, 10), dayBar("2024-01-03", 10, 20)},
	}}
	out, err := newEngine().Compute(in, models.DripOptions{Base: 1000, Horizon: models.Horizon5Y, Start: "2024-01-03"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-03"}, out.Dates)
	assert.Equal(t, []any{1000.0}, floats(t, out.Series[0].Value))
}

func TestComputeRejectsInvalidArguments(t *testing.T) {
	for _, base := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := newEngine().Compute(nil, models.DripOptions{Base: base, Horizon: models.HorizonMax})
		assert.True(t, errors.Is(err, ErrInvalidArgument), "base %v", base)
	}
}

func TestUnknownHorizonFallsBackToFiveYears(t *testing.T) {
	e := New(WithClock(fixedClock("2024-02-29")))
	in := []models.SymbolHistory{{
		Symbol: "OLD",
		Bars:   []models.DailyBar{dayBar("2019-02-27", 10, 10), dayBar("2019-03-01", 10, 11)},
	}}
	out, err := e.Compute(in, models.DripOptions{Base: 1000, Horizon: "10y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2019-03-01"}, out.Dates)

	assert.Equal(t, models.HorizonMax, NormalizeHorizon(" MAX "))
	assert.Equal(t, models.Horizon5Y, NormalizeHorizon(""))
	assert.Equal(t, models.Horizon5Y, NormalizeHorizon("10y"))
}

func TestComputeWithoutDataIsEmpty(t *testing.T) {
	out, err := newEngine().Compute([]models.SymbolHistory{{Symbol: "NONE"}}, models.DripOptions{Base: 1000})
	require.NoError(t, err)
	assert.Empty(t, out.Dates)
	require.Len(t, out.Series, 1)
	assert.Empty(t, out.Series[0].Value)
	assert.Empty(t, out.Series[0].Pct)
}

func TestSharesStayOnFourDecimals(t *testing.T) {
	in := &prepared{
		symbol: "RND",
		byDate: IndexBars([]models.DailyBar{
			dayBar("2024-01-02", 3, 3),
			dayBar("2024-01-03", 7, 7),
			dayBar("2024-01-04", 11, 11),
		}),
		splits:    map[string][]float64{"2024-01-03": {1.7}},
		dividends: []datedAmount{{date: "2024-01-04", amount: 0.37}},
	}
	dates := []string{"2024-01-02", "2024-01-03", "2024-01-04"}
	s := simulate(dates, in, 1000)

	// 1000/3 = 333.3333; *1.7 = 566.6666; + 566.6666*0.37/11 = 19.0606
	closes := []float64{3, 7, 11}
	wantShares := []float64{333.3333, 566.6666, 585.7272}
	for i := range dates {
		require.True(t, s.Value[i].Valid)
		shares := s.Value[i].Float64 / closes[i]
		assert.InDelta(t, wantShares[i], shares, 1e-9)
		assert.InDelta(t, roundShares(shares), shares, 1e-9)
	}
}
