package models

import (
	"fmt"
	"strings"
)

// Range is a provider history range.
type Range string

const (
	Range1Y  Range = "1y"
	Range5Y  Range = "5y"
	RangeMax Range = "max"
)

// IsValidRange returns true if r is a supported range.
func IsValidRange(r Range) bool {
	switch r {
	case Range1Y, Range5Y, RangeMax:
		return true
	default:
		return false
	}
}

// DefaultRange returns the default range.
func DefaultRange() Range { return Range5Y }

// NormalizeRange converts raw string to a valid range (or default).
func NormalizeRange(s string) Range {
	r := Range(strings.ToLower(strings.TrimSpace(s)))
	if IsValidRange(r) {
		return r
	}
	return DefaultRange()
}

// Span selects the history window requested from the provider: either a
// named Range or an explicit [Period1, Period2] in epoch seconds.
type Span struct {
	Range   Range
	Period1 int64
	Period2 int64
}

// RangeSpan returns a span for a named range.
func RangeSpan(r Range) Span { return Span{Range: r} }

// IsCustom reports whether explicit periods were given.
func (s Span) IsCustom() bool { return s.Period1 > 0 }

// Key is a stable identifier used for cache keys and logging.
func (s Span) Key() string {
	if s.IsCustom() {
		return fmt.Sprintf("p%d-%d", s.Period1, s.Period2)
	}
	if s.Range == "" {
		return string(DefaultRange())
	}
	return string(s.Range)
}
