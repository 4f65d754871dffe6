package repository

import (
	"context"

	"DripView/internal/domain/models"
)

// MarketData fetches daily history from the upstream chart API. apiKey is
// the caller's provider key and is never persisted by implementations.
type MarketData interface {
	FetchDailyBars(ctx context.Context, symbol string, span models.Span, apiKey string) ([]models.DailyBar, error)
	FetchEvents(ctx context.Context, symbol string, span models.Span, apiKey string) (models.CorporateEvents, error)
}

// KeyStore keeps one encrypted provider key per user.
type KeyStore interface {
	Save(ctx context.Context, userID, key string) error
	Get(ctx context.Context, userID string) (string, error)
	HasKey(ctx context.Context, userID string) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// Archiver accepts freshly fetched bars for archival. Offer must not block.
type Archiver interface {
	Offer(symbol string, bars []models.DailyBar) bool
}

type Publisher interface {
	PublishBars(ctx context.Context, bars []models.ArchivedBar) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, bars []models.ArchivedBar) error
	LoadBars(ctx context.Context, symbol, from, to string, limit int) ([]models.ArchivedBar, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordArchived(backend, symbol string, n int)
	RecordError(kind string)
	RecordLastClose(symbol string, close float64)
	RecordLatency(op string, seconds float64)
	RecordCache(layer, result string)
	RecordProviderRequest(area, status string)
}
