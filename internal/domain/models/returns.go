package models

import "github.com/guregu/null/v6"

// Horizon selects the DRIP lookback window.
type Horizon string

const (
	Horizon5Y  Horizon = "5y"
	HorizonMax Horizon = "max"
)

// DefaultBase is the starting cash used when the caller does not supply one.
const DefaultBase = 1000.0

// DripOptions configures a DRIP computation. Start optionally overrides the
// horizon-derived first calendar date (any bound accepted by the calendar).
type DripOptions struct {
	Base    float64
	Horizon Horizon
	Start   string
}

// DripSeries is the valuation path of one symbol, aligned with DripOutput.Dates.
type DripSeries struct {
	Symbol string       `json:"symbol"`
	Value  []null.Float `json:"value"`
	Pct    []null.Float `json:"pct"`
}

// DripOutput is the result of a DRIP computation.
type DripOutput struct {
	Dates  []string     `json:"dates"`
	Series []DripSeries `json:"series"`
}

// ReturnsMeta echoes the effective request parameters.
type ReturnsMeta struct {
	Symbols []string `json:"symbols"`
	Base    float64  `json:"base"`
	Horizon Horizon  `json:"horizon"`
}

// ReturnsResult is the payload of the returns endpoint.
type ReturnsResult struct {
	Meta   ReturnsMeta  `json:"meta"`
	Dates  []string     `json:"dates"`
	Series []DripSeries `json:"series"`
}

// PriceItem is one symbol of the prices endpoint.
type PriceItem struct {
	Symbol  string       `json:"symbol"`
	Range   string       `json:"range"`
	Candles []DailyBar   `json:"candles"`
	Splits  []SplitEvent `json:"splits"`
}

// DividendRow is a dividend keyed by its New York calendar date.
type DividendRow struct {
	DateISO string  `json:"dateIso"`
	Amount  float64 `json:"amount"`
}

// DividendItem is one symbol of the dividends endpoint.
type DividendItem struct {
	Symbol    string        `json:"symbol"`
	Range     string        `json:"range"`
	Dividends []DividendRow `json:"dividends"`
}
