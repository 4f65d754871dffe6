package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DripView/internal/domain/models"
)

func closeBars(closes ...float64) []models.DailyBar {
	out := make([]models.DailyBar, len(closes))
	for i, c := range closes {
		out[i] = models.DailyBar{
			Timestamp: int64(1700000000 + i*86400),
			High:      null.FloatFrom(c + 1),
			Low:       null.FloatFrom(c - 1),
			Close:     null.FloatFrom(c),
		}
	}
	return out
}

func nf(xs ...any) []null.Float {
	out := make([]null.Float, len(xs))
	for i, x := range xs {
		if f, ok := x.(float64); ok {
			out[i] = null.FloatFrom(f)
		}
	}
	return out
}

func TestConstantHistoryHasZeroDispersion(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 50
	}
	s := Compute(closeBars(closes...))

	require.NotNil(t, s.LastYear.Average)
	assert.Equal(t, null.FloatFrom(50), s.LastYear.Average.Close)
	assert.Equal(t, null.FloatFrom(0), s.LastYear.Std.Close)
	assert.Equal(t, null.FloatFrom(0), s.LastYear.Var.Close)
	assert.Equal(t, null.FloatFrom(0), s.AllTime.Var.Close)
	assert.InDelta(t, 0.04, s.Current.IntradayVariation.Float64, 1e-12)
	assert.Equal(t, null.FloatFrom(0), s.LastYear.Std.ReturnsFrom.D90)
	assert.Equal(t, null.FloatFrom(0), s.Current.ReturnsFrom.D1)
	assert.Nil(t, s.AllTime.Average)
}

func TestLastYearUsesTrailingWindow(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	s := Compute(closeBars(closes...))

	assert.Equal(t, 46.0, s.LastYear.Min.Close.Float64)
	assert.Equal(t, 300.0, s.LastYear.Max.Close.Float64)
	assert.Equal(t, 1.0, s.AllTime.Min.Close.Float64)
	assert.Equal(t, 300.0, s.Current.Close.Float64)
	assert.InDelta(t, 300.0/299-1, s.Current.ReturnsFrom.D1.Float64, 1e-12)
	assert.InDelta(t, 300.0/210-1, s.Current.ReturnsFrom.D90.Float64, 1e-12)
}

func TestReturnSeries(t *testing.T) {
	closes := nf(10.0, 11.0, nil, 0.0, 12.0, 15.0)
	got := ReturnSeries(closes, 1)

	require.Len(t, got, len(closes))
	assert.False(t, got[0].Valid)
	assert.InDelta(t, 0.1, got[1].Float64, 1e-12)
	assert.False(t, got[2].Valid)
	assert.False(t, got[3].Valid)
	assert.False(t, got[4].Valid)
	assert.InDelta(t, 0.25, got[5].Float64, 1e-12)

	assert.Len(t, ReturnSeries(closes, 0), len(closes))
	for _, v := range ReturnSeries(closes, 10) {
		assert.False(t, v.Valid)
	}
}

func TestIntradayVariation(t *testing.T) {
	bars := []models.DailyBar{
		{High: null.FloatFrom(12), Low: null.FloatFrom(8), Close: null.FloatFrom(10)},
		{High: null.FloatFrom(12), Close: null.FloatFrom(10)},
		{High: null.FloatFrom(12), Low: null.FloatFrom(8), Close: null.FloatFrom(0)},
	}
	got := IntradayVariation(bars)
	assert.InDelta(t, 0.4, got[0].Float64, 1e-12)
	assert.False(t, got[1].Valid)
	assert.False(t, got[2].Valid)
}

func TestAggregators(t *testing.T) {
	xs := nf(1.0, nil, 2.0, 3.0, 4.0, math.NaN())

	assert.Equal(t, 2.5, Mean(xs).Float64)
	assert.Equal(t, 1.0, Min(xs).Float64)
	assert.Equal(t, 4.0, Max(xs).Float64)
	assert.Equal(t, 1.25, Variance(xs).Float64)
	assert.InDelta(t, math.Sqrt(1.25), Std(xs).Float64, 1e-12)
	assert.Equal(t, 4.0, Current(nf(1.0, 4.0, nil, nil)).Float64)
	assert.Equal(t, 4.0, Current(xs).Float64)
	assert.False(t, Current(nf(math.NaN(), math.Inf(1))).Valid)
}

func TestNonFiniteCloseStillMarshals(t *testing.T) {
	bars := closeBars(10, 11)
	bars[1].Close = null.FloatFrom(math.Inf(1))

	s := Compute(bars)
	assert.Equal(t, 10.0, s.Current.Close.Float64)
	_, err := json.Marshal(s)
	require.NoError(t, err)
}

func TestDuplicateDatesCountOnce(t *testing.T) {
	bars := closeBars(10, 20)
	dup := bars[1]
	dup.Timestamp += 3600
	dup.Close = null.FloatFrom(1000)
	bars = append(bars, dup)

	s := Compute(bars)
	assert.Equal(t, 20.0, s.Current.Close.Float64)
	assert.Equal(t, 20.0, s.AllTime.Max.Close.Float64)
	assert.Equal(t, 15.0, s.LastYear.Average.Close.Float64)
}

func TestEmptyInputYieldsNulls(t *testing.T) {
	for name, fn := range map[string]func([]null.Float) null.Float{
		"mean": Mean, "min": Min, "max": Max, "var": Variance, "std": Std, "current": Current,
	} {
		assert.False(t, fn(nil).Valid, name)
		assert.False(t, fn(nf(nil, nil)).Valid, name)
	}

	s := Compute(nil)
	assert.False(t, s.Current.Close.Valid)
	require.NotNil(t, s.LastYear.Average)
	assert.False(t, s.LastYear.Average.Close.Valid)
	assert.False(t, s.AllTime.Std.ReturnsFrom.D5.Valid)
}

func TestStatsJSONShape(t *testing.T) {
	raw, err := json.Marshal(Compute(closeBars(10, 11)))
	require.NoError(t, err)

	var doc map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc["lastYear"], "average")
	assert.NotContains(t, doc["allTime"], "average")

	var current map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["current"]["returnsFrom"], &current))
	assert.Equal(t, "null", string(current["d5"]))
	assert.Contains(t, current, "d90")
}
