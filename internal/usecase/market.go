package usecase

import (
	"context"
	"sort"
	"time"

	"DripView/internal/domain/models"
	"DripView/internal/services/calendar"
	"DripView/internal/services/drip"
	"DripView/internal/services/stats"
)

// ReturnsParams are validated inputs of the returns endpoint.
type ReturnsParams struct {
	Symbols []string
	Horizon models.Horizon
	Base    float64
	Period1 int64
	Period2 int64
	APIKey  string
}

// ComputeObserver receives engine compute durations.
type ComputeObserver interface {
	ObserveCompute(engine string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCompute(string, time.Duration) {}

// ReturnsUseCase runs the DRIP engine over freshly loaded history.
type ReturnsUseCase struct {
	loader  *HistoryLoader
	engine  *drip.Engine
	observe ComputeObserver
}

func NewReturnsUseCase(loader *HistoryLoader, engine *drip.Engine) *ReturnsUseCase {
	return &ReturnsUseCase{loader: loader, engine: engine, observe: nopObserver{}}
}

// WithObserver reports engine compute time to o.
func (uc *ReturnsUseCase) WithObserver(o ComputeObserver) *ReturnsUseCase {
	if o != nil {
		uc.observe = o
	}
	return uc
}

func (uc *ReturnsUseCase) Execute(ctx context.Context, p ReturnsParams) (*models.ReturnsResult, error) {
	if p.Base == 0 {
		p.Base = models.DefaultBase
	}
	p.Horizon = drip.NormalizeHorizon(p.Horizon)

	span := models.RangeSpan(models.Range(p.Horizon))
	opts := models.DripOptions{Base: p.Base, Horizon: p.Horizon}
	if p.Period1 > 0 {
		span = models.SpanFor(models.Range(p.Horizon), p.Period1, p.Period2)
		opts.Start = calendar.UnixBound(p.Period1)
	}

	// validate before spending provider calls
	if err := drip.ValidateOptions(opts); err != nil {
		return nil, err
	}

	histories, err := uc.loader.Load(ctx, p.Symbols, span, p.APIKey, true)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := uc.engine.Compute(histories, opts)
	uc.observe.ObserveCompute("drip", time.Since(start))
	if err != nil {
		return nil, err
	}
	return &models.ReturnsResult{
		Meta:   models.ReturnsMeta{Symbols: p.Symbols, Base: p.Base, Horizon: p.Horizon},
		Dates:  out.Dates,
		Series: out.Series,
	}, nil
}

// RangeParams are the shared inputs of the stats, prices and dividends
// endpoints.
type RangeParams struct {
	Symbols []string
	Range   models.Range
	Period1 int64
	Period2 int64
	APIKey  string
}

func (p RangeParams) span() models.Span {
	return models.SpanFor(models.NormalizeRange(string(p.Range)), p.Period1, p.Period2)
}

type StatsUseCase struct {
	loader  *HistoryLoader
	observe ComputeObserver
}

func NewStatsUseCase(loader *HistoryLoader) *StatsUseCase {
	return &StatsUseCase{loader: loader, observe: nopObserver{}}
}

func (uc *StatsUseCase) WithObserver(o ComputeObserver) *StatsUseCase {
	if o != nil {
		uc.observe = o
	}
	return uc
}

func (uc *StatsUseCase) Execute(ctx context.Context, p RangeParams) ([]models.SymbolStatsItem, error) {
	histories, err := uc.loader.Load(ctx, p.Symbols, p.span(), p.APIKey, false)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	items := make([]models.SymbolStatsItem, len(histories))
	for i, h := range histories {
		items[i] = models.SymbolStatsItem{Symbol: h.Symbol, Stats: stats.Compute(h.Bars)}
	}
	uc.observe.ObserveCompute("stats", time.Since(start))
	return items, nil
}

type PricesUseCase struct {
	loader *HistoryLoader
}

func NewPricesUseCase(loader *HistoryLoader) *PricesUseCase {
	return &PricesUseCase{loader: loader}
}

func (uc *PricesUseCase) Execute(ctx context.Context, p RangeParams) ([]models.PriceItem, error) {
	histories, err := uc.loader.Load(ctx, p.Symbols, p.span(), p.APIKey, true)
	if err != nil {
		return nil, err
	}
	rng := string(models.NormalizeRange(string(p.Range)))
	items := make([]models.PriceItem, len(histories))
	for i, h := range histories {
		items[i] = models.PriceItem{
			Symbol:  h.Symbol,
			Range:   rng,
			Candles: nonNil(h.Bars),
			Splits:  nonNil(h.Splits),
		}
	}
	return items, nil
}

// DividendsUseCase lists dividends keyed by New York date.
type DividendsUseCase struct {
	loader *HistoryLoader
}

func NewDividendsUseCase(loader *HistoryLoader) *DividendsUseCase {
	return &DividendsUseCase{loader: loader}
}

func (uc *DividendsUseCase) Execute(ctx context.Context, p RangeParams) ([]models.DividendItem, error) {
	rng := models.NormalizeRange(string(p.Range))
	items := make([]models.DividendItem, len(p.Symbols))

	// events only, bars are not needed here
	for i, sym := range p.Symbols {
		items[i] = models.DividendItem{Symbol: sym, Range: string(rng)}
	}
	events, err := uc.loader.LoadEvents(ctx, p.Symbols, models.RangeSpan(rng), p.APIKey)
	if err != nil {
		return nil, err
	}
	for i, ev := range events {
		rows := make([]models.DividendRow, 0, len(ev.Dividends))
		for _, d := range ev.Dividends {
			rows = append(rows, models.DividendRow{DateISO: calendar.DateKey(d.Timestamp), Amount: d.Amount})
		}
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].DateISO < rows[b].DateISO })
		items[i].Dividends = rows
	}
	return items, nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
