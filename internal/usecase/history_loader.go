package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
)

// HistoryLoader fetches bars (and optionally corporate events) for a
// basket of symbols concurrently.
type HistoryLoader struct {
	md            domrepo.MarketData
	archiver      domrepo.Archiver
	metrics       domrepo.Metrics
	maxConcurrent int
}

// NewHistoryLoader creates a loader. archiver may be nil.
func NewHistoryLoader(md domrepo.MarketData, archiver domrepo.Archiver, metrics domrepo.Metrics, maxConcurrent int) *HistoryLoader {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &HistoryLoader{md: md, archiver: archiver, metrics: metrics, maxConcurrent: maxConcurrent}
}

// Load returns one history per symbol in input order. The first failure
// cancels the remaining fetches and is returned.
func (l *HistoryLoader) Load(ctx context.Context, symbols []string, span models.Span, apiKey string, withEvents bool) ([]models.SymbolHistory, error) {
	start := time.Now()
	out := make([]models.SymbolHistory, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for i, sym := range symbols {
		g.Go(func() error {
			bars, err := l.md.FetchDailyBars(gctx, sym, span, apiKey)
			if err != nil {
				return fmt.Errorf("load %s bars: %w", sym, err)
			}
			h := models.SymbolHistory{Symbol: sym, Bars: bars}

			if withEvents {
				ev, err := l.md.FetchEvents(gctx, sym, span, apiKey)
				if err != nil {
					return fmt.Errorf("load %s events: %w", sym, err)
				}
				h.Splits, h.Dividends = ev.Splits, ev.Dividends
			}

			if l.archiver != nil {
				l.archiver.Offer(sym, bars)
			}
			if n := len(bars); n > 0 && bars[n-1].Close.Valid {
				l.metrics.RecordLastClose(sym, bars[n-1].Close.Float64)
			}
			out[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.metrics.RecordError("history_load")
		return nil, err
	}
	l.metrics.RecordLatency("history_load", time.Since(start).Seconds())
	return out, nil
}

// LoadEvents fetches corporate events only, in input order.
func (l *HistoryLoader) LoadEvents(ctx context.Context, symbols []string, span models.Span, apiKey string) ([]models.CorporateEvents, error) {
	out := make([]models.CorporateEvents, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for i, sym := range symbols {
		g.Go(func() error {
			ev, err := l.md.FetchEvents(gctx, sym, span, apiKey)
			if err != nil {
				return fmt.Errorf("load %s events: %w", sym, err)
			}
			out[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.metrics.RecordError("events_load")
		return nil, err
	}
	return out, nil
}
