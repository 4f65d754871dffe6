package calendar

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DripView/internal/domain/models"
)

func bar(date string) models.DailyBar {
	t, err := time.ParseInLocation(KeyLayout, date, Location())
	if err != nil {
		panic(err)
	}
	return models.DailyBar{Timestamp: t.Add(9*time.Hour + 30*time.Minute).Unix()}
}

func bars(dates ...string) []models.DailyBar {
	out := make([]models.DailyBar, 0, len(dates))
	for _, d := range dates {
		out = append(out, bar(d))
	}
	return out
}

func TestBuildUnion(t *testing.T) {
	a := bars("2024-01-02", "2024-01-04", "2024-01-05")
	b := bars("2024-01-03", "2024-01-04")

	got := Build([][]models.DailyBar{a, b}, Options{Today: "2024-12-31"})
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, got)
}

func TestBuildBounds(t *testing.T) {
	series := [][]models.DailyBar{bars("2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")}

	got := Build(series, Options{Start: "2024-01-03", End: "2024-01-04"})
	assert.Equal(t, []string{"2024-01-03", "2024-01-04"}, got)

	start := time.Date(2024, 1, 4, 14, 30, 0, 0, time.UTC).Unix()
	got = Build(series, Options{Start: UnixBound(start), Today: "2024-12-31"})
	assert.Equal(t, []string{"2024-01-04", "2024-01-05"}, got)
}

func TestBuildEndDefaultsToToday(t *testing.T) {
	series := [][]models.DailyBar{bars("2024-01-02", "2024-01-03")}
	got := Build(series, Options{Today: "2024-01-02"})
	assert.Equal(t, []string{"2024-01-02"}, got)
}

func TestBuildIgnoresNonPositiveTimestamps(t *testing.T) {
	series := [][]models.DailyBar{{{Timestamp: 0}, {Timestamp: -10}}, bars("2024-01-02")}
	got := Build(series, Options{Today: "2024-12-31"})
	assert.Equal(t, []string{"2024-01-02"}, got)
}

func TestBuildEmpty(t *testing.T) {
	got := Build(nil, Options{})
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Build([][]models.DailyBar{{}}, Options{})
	assert.Empty(t, got)
}

func TestBuildStrictlyAscending(t *testing.T) {
	series := [][]models.DailyBar{
		bars("2024-03-01", "2024-01-02", "2024-02-01", "2024-01-02"),
		bars("2024-02-01", "2023-12-29"),
	}
	got := Build(series, Options{Today: "2024-12-31"})
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
}

func TestDedupeBarsKeepsOrderAndPrefersClose(t *testing.T) {
	noClose := bar("2024-01-03")
	withClose := bar("2024-01-03")
	withClose.Timestamp += 3600
	withClose.Close = null.FloatFrom(11)
	first := bar("2024-01-02")
	first.Close = null.FloatFrom(10)
	later := bar("2024-01-02")
	later.Close = null.FloatFrom(99)

	got := DedupeBars([]models.DailyBar{first, noClose, later, withClose})
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, withClose, got[1])
	assert.Empty(t, DedupeBars(nil))
}
