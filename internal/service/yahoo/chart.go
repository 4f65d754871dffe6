package yahoo

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"DripView/internal/domain/models"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
	Events *struct {
		Splits    map[string]rawSplit    `json:"splits"`
		Dividends map[string]rawDividend `json:"dividends"`
	} `json:"events"`
}

type rawSplit struct {
	Date        int64    `json:"date"`
	Numerator   *float64 `json:"numerator"`
	Denominator *float64 `json:"denominator"`
	SplitRatio  string   `json:"splitRatio"`
}

type rawDividend struct {
	Date   int64   `json:"date"`
	Amount float64 `json:"amount"`
}

// decodeChart parses body and returns the first result. A "Not Found"
// chart error maps to ErrSymbolNotFound.
func decodeChart(area Area, symbol string, body []byte) (*chartResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, parseError(area, "")
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseError(area, err.Error())
	}
	if e := resp.Chart.Error; e != nil && strings.EqualFold(e.Code, "Not Found") {
		return nil, notFound(area, symbol, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, parseError(area, "")
	}
	return &resp.Chart.Result[0], nil
}

// bars zips the timestamp and indicator arrays to the longest length.
// Missing entries become null, as does a missing timestamp (0).
func (r *chartResult) bars() []models.DailyBar {
	var open, high, low, closes, volume, adj []*float64
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		open, high, low, closes, volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	n := len(r.Timestamp)
	for _, s := range [][]*float64{open, high, low, closes, volume, adj} {
		if len(s) > n {
			n = len(s)
		}
	}

	out := make([]models.DailyBar, n)
	for i := range out {
		var ts int64
		if i < len(r.Timestamp) {
			ts = r.Timestamp[i]
		}
		out[i] = models.DailyBar{
			Timestamp: ts,
			Open:      at(open, i),
			High:      at(high, i),
			Low:       at(low, i),
			Close:     at(closes, i),
			Volume:    at(volume, i),
			AdjClose:  at(adj, i),
		}
	}
	return out
}

func (r *chartResult) events() models.CorporateEvents {
	ev := models.CorporateEvents{
		Splits:    []models.SplitEvent{},
		Dividends: []models.DividendEvent{},
	}
	if r.Events == nil {
		return ev
	}

	for _, k := range sortedKeys(r.Events.Splits) {
		s := r.Events.Splits[k]
		var ratio float64
		if s.SplitRatio != "" {
			ratio = parseSplitRatio(s.SplitRatio)
		} else {
			ratio = ratioOf(s.Numerator, s.Denominator)
		}
		ev.Splits = append(ev.Splits, models.SplitEvent{Timestamp: s.Date, Ratio: ratio})
	}
	for _, k := range sortedKeys(r.Events.Dividends) {
		d := r.Events.Dividends[k]
		ev.Dividends = append(ev.Dividends, models.DividendEvent{Timestamp: d.Date, Amount: d.Amount})
	}

	sort.SliceStable(ev.Splits, func(i, j int) bool { return ev.Splits[i].Timestamp < ev.Splits[j].Timestamp })
	sort.SliceStable(ev.Dividends, func(i, j int) bool { return ev.Dividends[i].Timestamp < ev.Dividends[j].Timestamp })
	return ev
}

func at(vals []*float64, i int) null.Float {
	if i >= len(vals) || vals[i] == nil {
		return null.Float{}
	}
	v := *vals[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// parseSplitRatio reads "a:b" as a/b, falling back to 1.
func parseSplitRatio(text string) float64 {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return 1
	}
	num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || den == 0 || math.IsInf(num, 0) || math.IsInf(den, 0) {
		return 1
	}
	return num / den
}

func ratioOf(num, den *float64) float64 {
	if num == nil || den == nil || *den == 0 {
		return 1
	}
	r := *num / *den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
