package repository

import (
	"context"
	"strings"
	"time"

	"DripView/internal/domain/models"
	domrepo "DripView/internal/domain/repository"
	"DripView/pkg/cache"
)

// CachedMarketData decorates a MarketData source with a response cache.
// Only parsed entities are cached; keys never contain the API key.
type CachedMarketData struct {
	next    domrepo.MarketData
	cache   cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
}

func NewCachedMarketData(next domrepo.MarketData, c cache.Service, ttl time.Duration, m domrepo.Metrics) *CachedMarketData {
	return &CachedMarketData{next: next, cache: c, ttl: ttl, metrics: m}
}

func barsKey(symbol string, span models.Span) string {
	return "md:bars:" + strings.ToUpper(symbol) + ":" + span.Key()
}

func eventsKey(symbol string, span models.Span) string {
	return "md:events:" + strings.ToUpper(symbol) + ":" + span.Key()
}

func (m *CachedMarketData) FetchDailyBars(ctx context.Context, symbol string, span models.Span, apiKey string) ([]models.DailyBar, error) {
	bars, outcome, err := cache.GetOrLoad(ctx, m.cache, barsKey(symbol, span), m.ttlFor(span),
		func(ctx context.Context) ([]models.DailyBar, error) {
			return m.next.FetchDailyBars(ctx, symbol, span, apiKey)
		})
	m.metrics.RecordCache("bars", string(outcome))
	return bars, err
}

func (m *CachedMarketData) FetchEvents(ctx context.Context, symbol string, span models.Span, apiKey string) (models.CorporateEvents, error) {
	ev, outcome, err := cache.GetOrLoad(ctx, m.cache, eventsKey(symbol, span), m.ttlFor(span),
		func(ctx context.Context) (models.CorporateEvents, error) {
			return m.next.FetchEvents(ctx, symbol, span, apiKey)
		})
	m.metrics.RecordCache("events", string(outcome))
	return ev, err
}

// ttlFor keeps open-ended custom spans short so "now" does not go stale.
func (m *CachedMarketData) ttlFor(span models.Span) time.Duration {
	if span.IsCustom() && span.Period2 == 0 && m.ttl > time.Minute {
		return time.Minute
	}
	return m.ttl
}

var _ domrepo.MarketData = (*CachedMarketData)(nil)
