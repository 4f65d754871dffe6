package drip

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
)

// ErrInvalidArgument is returned for a non-positive or non-finite base.
var ErrInvalidArgument = errors.New("invalid argument")

type Option func(*Engine)

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine computes dividend-reinvested valuation series. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type prepared struct {
	symbol    string
	byDate    map[string]models.DailyBar
	splits    map[string][]float64
	dividends []datedAmount
}

// Compute walks the shared trading calendar and values a position of base
// cash bought at each symbol's first available close, reinvesting dividends
// at the next available open.
func (e *Engine) Compute(inputs []models.SymbolHistory, opts models.DripOptions) (*models.DripOutput, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	base := opts.Base
	horizon := NormalizeHorizon(opts.Horizon)

	today := calendar.TodayAt(e.now())
	start := opts.Start
	if start == "" && horizon == models.Horizon5Y {
		start = calendar.FiveYearsAgoBoundary(today)
	}

	items := make([]prepared, len(inputs))
	allBars := make([][]models.DailyBar, len(inputs))
	for i, in := range inputs {
		bars := SanitizeBars(in.Bars)
		items[i] = prepared{
			symbol:    in.Symbol,
			byDate:    IndexBars(bars),
			splits:    splitsByDate(SanitizeSplits(in.Splits)),
			dividends: dividendsByDate(SanitizeDividends(in.Dividends)),
		}
		allBars[i] = bars
	}

	dates := calendar.Build(allBars, calendar.Options{Start: start, Today: today})

	out := &models.DripOutput{
		Dates:  dates,
		Series: make([]models.DripSeries, len(items)),
	}
	for i := range items {
		out.Series[i] = simulate(dates, &items[i], base)
	}
	return out, nil
}

// ValidateOptions reports ErrInvalidArgument for options Compute rejects.
func ValidateOptions(opts models.DripOptions) error {
	if math.IsNaN(opts.Base) || math.IsInf(opts.Base, 0) || opts.Base <= 0 {
		return fmt.Errorf("%w: base must be a positive finite number, got %v", ErrInvalidArgument, opts.Base)
	}
	return nil
}

// NormalizeHorizon maps h to "max" or "5y". Anything other than "max" is
// treated as "5y".
func NormalizeHorizon(h models.Horizon) models.Horizon {
	if models.Horizon(strings.ToLower(strings.TrimSpace(string(h)))) == models.HorizonMax {
		return models.HorizonMax
	}
	return models.Horizon5Y
}

func simulate(dates []string, in *prepared, base float64) models.DripSeries {
	series := models.DripSeries{
		Symbol: in.symbol,
		Value:  make([]null.Float, len(dates)),
		Pct:    make([]null.Float, len(dates)),
	}

	var pos position
	next := 0
	for i, date := range dates {
		bar, ok := in.byDate[date]

		if !pos.started && ok && bar.Close.Valid {
			pos.buy(base, bar.Close.Float64)
		}

		for next < len(in.dividends) && in.dividends[next].date <= date {
			pos.accrue(in.dividends[next].amount)
			next++
		}

		for _, ratio := range in.splits[date] {
			pos.split(ratio)
		}

		if ok && bar.Open.Valid {
			pos.reinvest(bar.Open.Float64)
		}

		if pos.started && ok && bar.Close.Valid {
			value := pos.shares * bar.Close.Float64
			series.Value[i] = null.FloatFrom(value)
			series.Pct[i] = null.FloatFrom((value - base) / base)
		}

		pos.close()
	}
	return series
}
