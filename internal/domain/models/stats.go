package models

import "github.com/guregu/null/v6"

// ReturnWindows are the trailing return lookbacks, in trading days.
var ReturnWindows = []int{1, 5, 10, 15, 20, 30, 60, 90}

// ReturnsFrom holds one value per entry of ReturnWindows.
type ReturnsFrom struct {
	D1  null.Float `json:"d1"`
	D5  null.Float `json:"d5"`
	D10 null.Float `json:"d10"`
	D15 null.Float `json:"d15"`
	D20 null.Float `json:"d20"`
	D30 null.Float `json:"d30"`
	D60 null.Float `json:"d60"`
	D90 null.Float `json:"d90"`
}

// Set stores v under the given window. Unknown windows are ignored.
func (r *ReturnsFrom) Set(window int, v null.Float) {
	switch window {
	case 1:
		r.D1 = v
	case 5:
		r.D5 = v
	case 10:
		r.D10 = v
	case 15:
		r.D15 = v
	case 20:
		r.D20 = v
	case 30:
		r.D30 = v
	case 60:
		r.D60 = v
	case 90:
		r.D90 = v
	}
}

type StatsBucket struct {
	Close             null.Float  `json:"close"`
	IntradayVariation null.Float  `json:"intradayVariation"`
	ReturnsFrom       ReturnsFrom `json:"returnsFrom"`
}

// StatsAgg aggregates a window of derived series. Average is only set for
// the last-year window.
type StatsAgg struct {
	Average *StatsBucket `json:"average,omitempty"`
	Min     StatsBucket  `json:"min"`
	Max     StatsBucket  `json:"max"`
	Std     StatsBucket  `json:"std"`
	Var     StatsBucket  `json:"var"`
}

type SymbolStats struct {
	Current  StatsBucket `json:"current"`
	LastYear StatsAgg    `json:"lastYear"`
	AllTime  StatsAgg    `json:"allTime"`
}

type SymbolStatsItem struct {
	Symbol string      `json:"symbol"`
	Stats  SymbolStats `json:"stats"`
}
