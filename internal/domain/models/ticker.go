package models

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxSymbols caps the basket size accepted by the API.
const MaxSymbols = 5

// US equities: 1-5 letters with an optional class suffix such as BRK-B.
var usTickerPattern = regexp.MustCompile(`^[A-Z]{1,5}(?:-[A-Z]{1,2})?$`)

// TickerValidationError is returned for a malformed ticker symbol.
type TickerValidationError struct {
	Symbol  string
	Message string
}

func (e *TickerValidationError) Error() string {
	if e.Symbol == "" {
		return e.Message
	}
	return e.Message + ": " + e.Symbol
}

// NormalizeTicker trims, uppercases and validates a single ticker.
func NormalizeTicker(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", &TickerValidationError{Message: "ticker is required"}
	}
	if !usTickerPattern.MatchString(s) {
		return "", &TickerValidationError{
			Symbol:  s,
			Message: "invalid US ticker format, use 1-5 letters with optional class suffix like BRK-B",
		}
	}
	return s, nil
}

// ParseSymbols splits a comma separated list, normalizes every entry and
// removes duplicates while keeping the first occurrence order.
func ParseSymbols(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		s, err := NormalizeTicker(p)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// ParseBasket parses a symbols query and enforces 1..MaxSymbols entries.
func ParseBasket(raw string) ([]string, error) {
	symbols, err := ParseSymbols(raw)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, &TickerValidationError{Message: "query param 'symbols' is required (comma-separated), e.g. symbols=AAPL,MSFT"}
	}
	if len(symbols) > MaxSymbols {
		return nil, &TickerValidationError{Message: fmt.Sprintf("a maximum of %d symbols is supported", MaxSymbols)}
	}
	return symbols, nil
}
