package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// DailyBar is one trading day of OHLCV data for a symbol. Timestamp is the
// provider's start-of-day marker in epoch seconds.
type DailyBar struct {
	Timestamp int64      `json:"dateUtcSeconds"`
	Open      null.Float `json:"open"`
	High      null.Float `json:"high"`
	Low       null.Float `json:"low"`
	Close     null.Float `json:"close"`
	Volume    null.Float `json:"volume"`
	AdjClose  null.Float `json:"adjClose"`
}

// SplitEvent multiplies held shares by Ratio (2 for a 2-for-1 split).
type SplitEvent struct {
	Timestamp int64   `json:"dateUtcSeconds"`
	Ratio     float64 `json:"ratio"`
}

// DividendEvent is a cash distribution of Amount per share.
type DividendEvent struct {
	Timestamp int64   `json:"dateUtcSeconds"`
	Amount    float64 `json:"amount"`
}

// CorporateEvents groups the splits and dividends reported for one symbol.
type CorporateEvents struct {
	Splits    []SplitEvent    `json:"splits"`
	Dividends []DividendEvent `json:"dividends"`
}

// SymbolHistory is everything the engines need for one symbol.
type SymbolHistory struct {
	Symbol    string
	Bars      []DailyBar
	Splits    []SplitEvent
	Dividends []DividendEvent
}

// ArchivedBar is the persisted/published form of a DailyBar.
type ArchivedBar struct {
	Symbol    string     `json:"symbol"`
	Date      string     `json:"date"`
	Timestamp int64      `json:"ts"`
	Open      null.Float `json:"open"`
	High      null.Float `json:"high"`
	Low       null.Float `json:"low"`
	Close     null.Float `json:"close"`
	Volume    null.Float `json:"volume"`
	AdjClose  null.Float `json:"adjClose"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

// Bar converts the archived row back into a DailyBar.
func (a ArchivedBar) Bar() DailyBar {
	return DailyBar{
		Timestamp: a.Timestamp,
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Close:     a.Close,
		Volume:    a.Volume,
		AdjClose:  a.AdjClose,
	}
}
