package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	for raw, want := range map[string]string{" aapl ": "AAPL", "brk-b": "BRK-B", "GOOGL": "GOOGL"} {
		got, err := NormalizeTicker(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"", "TOOLONG", "AB.C", "BRK-ABC", "12"} {
		_, err := NormalizeTicker(raw)
		var tv *TickerValidationError
		assert.True(t, errors.As(err, &tv), "%q", raw)
	}
}

func TestParseBasket(t *testing.T) {
	got, err := ParseBasket("msft, aapl,,MSFT")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "AAPL"}, got)

	_, err = ParseBasket(" , ")
	assert.Error(t, err)

	_, err = ParseBasket("A,B,C,D,E,F")
	assert.ErrorContains(t, err, "maximum of 5")
}

func TestSpanKey(t *testing.T) {
	assert.Equal(t, "5y", Span{}.Key())
	assert.Equal(t, "max", RangeSpan(RangeMax).Key())
	assert.Equal(t, "p100-200", SpanFor(Range1Y, 100, 200).Key())
	assert.Equal(t, Range5Y, NormalizeRange("weekly"))
	assert.Equal(t, Range1Y, NormalizeRange(" 1Y "))
}
