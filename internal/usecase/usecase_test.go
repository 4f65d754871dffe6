package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DripView/internal/domain/models"
	"DripView/internal/services/drip"
	"DripView/pkg/cache"
	"DripView/pkg/config"
	"DripView/pkg/metrics"
)

const (
	jan2 = int64(1704205800) // 2024-01-02 09:30 New York
	jan3 = int64(1704292200)
	jan4 = int64(1704378600)
)

type fakeMarket struct {
	mu       sync.Mutex
	bars     map[string][]models.DailyBar
	events   map[string]models.CorporateEvents
	failOn   string
	keys     []string
	barCalls int
}

func (f *fakeMarket) FetchDailyBars(ctx context.Context, symbol string, _ models.Span, apiKey string) ([]models.DailyBar, error) {
	f.mu.Lock()
	f.barCalls++
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	if symbol == f.failOn {
		return nil, errors.New("upstream failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeMarket) FetchEvents(_ context.Context, symbol string, _ models.Span, _ string) (models.CorporateEvents, error) {
	return f.events[symbol], nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	offered map[string]int
}

func (a *fakeArchiver) Offer(symbol string, bars []models.DailyBar) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.offered == nil {
		a.offered = map[string]int{}
	}
	a.offered[symbol] += len(bars)
	return true
}

func bar(ts int64, open, close float64) models.DailyBar {
	return models.DailyBar{Timestamp: ts, Open: null.FloatFrom(open), Close: null.FloatFrom(close)}
}

func newMarket() *fakeMarket {
	return &fakeMarket{
		bars: map[string][]models.DailyBar{
			"AAPL": {bar(jan2, 100, 100), bar(jan3, 105, 110)},
			"MSFT": {bar(jan3, 50, 50), bar(jan4, 51, 55)},
		},
		events: map[string]models.CorporateEvents{
			"AAPL": {Dividends: []models.DividendEvent{{Timestamp: jan3, Amount: 0.25}, {Timestamp: jan2, Amount: 0.24}}},
			"MSFT": {Splits: []models.SplitEvent{{Timestamp: jan4, Ratio: 2}}},
		},
	}
}

func TestHistoryLoaderKeepsInputOrder(t *testing.T) {
	md := newMarket()
	arch := &fakeArchiver{}
	l := NewHistoryLoader(md, arch, metrics.Nop{}, 2)

	got, err := l.Load(context.Background(), []string{"MSFT", "AAPL"}, models.RangeSpan(models.Range5Y), "user-key", true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MSFT", got[0].Symbol)
	assert.Equal(t, "AAPL", got[1].Symbol)
	assert.Len(t, got[0].Splits, 1)
	assert.Len(t, got[1].Dividends, 2)
	assert.Equal(t, map[string]int{"MSFT": 2, "AAPL": 2}, arch.offered)
	assert.Equal(t, []string{"user-key", "user-key"}, md.keys)
}

func TestHistoryLoaderFirstErrorWins(t *testing.T) {
	md := newMarket()
	md.failOn = "MSFT"
	l := NewHistoryLoader(md, nil, metrics.Nop{}, 1)

	_, err := l.Load(context.Background(), []string{"MSFT", "AAPL"}, models.RangeSpan(models.Range5Y), "k", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSFT")
}

func TestReturnsUseCase(t *testing.T) {
	md := newMarket()
	md.events = nil
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	uc := NewReturnsUseCase(NewHistoryLoader(md, nil, metrics.Nop{}, 5), drip.New(drip.WithClock(func() time.Time { return now })))

	res, err := uc.Execute(context.Background(), ReturnsParams{Symbols: []string{"AAPL"}, Horizon: models.HorizonMax, APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, models.ReturnsMeta{Symbols: []string{"AAPL"}, Base: 1000, Horizon: models.HorizonMax}, res.Meta)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, res.Dates)
	require.Len(t, res.Series, 1)
	assert.InDelta(t, 1000, res.Series[0].Value[0].Float64, 1e-9)
	assert.InDelta(t, 1100, res.Series[0].Value[1].Float64, 1e-9)
	assert.InDelta(t, 0.1, res.Series[0].Pct[1].Float64, 1e-9)
}

func TestReturnsUseCaseRejectsBadOptionsBeforeFetching(t *testing.T) {
	md := newMarket()
	uc := NewReturnsUseCase(NewHistoryLoader(md, nil, metrics.Nop{}, 5), drip.New())

	_, err := uc.Execute(context.Background(), ReturnsParams{Symbols: []string{"AAPL"}, Base: -5})
	assert.ErrorIs(t, err, drip.ErrInvalidArgument)
	assert.Zero(t, md.barCalls)
}

func TestStatsAndPricesUseCases(t *testing.T) {
	md := newMarket()
	md.bars["SPY"] = nil
	loader := NewHistoryLoader(md, nil, metrics.Nop{}, 5)

	stats, err := NewStatsUseCase(loader).Execute(context.Background(), RangeParams{Symbols: []string{"AAPL", "MSFT"}, Range: models.Range1Y})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "AAPL", stats[0].Symbol)
	assert.Equal(t, 110.0, stats[0].Stats.Current.Close.Float64)

	prices, err := NewPricesUseCase(loader).Execute(context.Background(), RangeParams{Symbols: []string{"SPY", "MSFT"}, Range: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, "5y", prices[0].Range)
	assert.NotNil(t, prices[0].Candles)
	assert.NotNil(t, prices[0].Splits)
	assert.Len(t, prices[1].Splits, 1)
}

func TestDividendsUseCaseSortsByNewYorkDate(t *testing.T) {
	md := newMarket()
	items, err := NewDividendsUseCase(NewHistoryLoader(md, nil, metrics.Nop{}, 5)).
		Execute(context.Background(), RangeParams{Symbols: []string{"AAPL", "MSFT"}, Range: models.RangeMax})
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "max", items[0].Range)
	assert.Equal(t, []models.DividendRow{{DateISO: "2024-01-02", Amount: 0.24}, {DateISO: "2024-01-03", Amount: 0.25}}, items[0].Dividends)
	assert.Empty(t, items[1].Dividends)
	assert.NotNil(t, items[1].Dividends)
	assert.Zero(t, md.barCalls)
}

type memPublisher struct{ bars []models.ArchivedBar }

func (p *memPublisher) PublishBars(_ context.Context, bars []models.ArchivedBar) error {
	p.bars = append(p.bars, bars...)
	return nil
}
func (p *memPublisher) Close() error { return nil }

type memStorage struct {
	bars []models.ArchivedBar
	err  error
}

func (s *memStorage) Init(context.Context) error { return nil }
func (s *memStorage) StoreBatch(_ context.Context, bars []models.ArchivedBar) error {
	if s.err != nil {
		return s.err
	}
	s.bars = append(s.bars, bars...)
	return nil
}
func (s *memStorage) LoadBars(context.Context, string, string, string, int) ([]models.ArchivedBar, error) {
	return s.bars, nil
}
func (s *memStorage) Health(context.Context) error { return nil }
func (s *memStorage) Close() error                 { return nil }

func TestArchiveProcessorRoutesByBackend(t *testing.T) {
	batch := []models.ArchivedBar{{Symbol: "AAPL", Date: "2024-01-02"}, {Symbol: "MSFT", Date: "2024-01-02"}}

	pub := &memPublisher{}
	require.NoError(t, NewArchiveProcessor(pub, nil, metrics.Nop{}, config.BackendKafka).ProcessBatch(context.Background(), batch))
	assert.Len(t, pub.bars, 2)

	store := &memStorage{}
	require.NoError(t, NewArchiveProcessor(nil, store, metrics.Nop{}, config.BackendClickHouse).ProcessBatch(context.Background(), batch))
	assert.Len(t, store.bars, 2)

	err := NewArchiveProcessor(pub, store, metrics.Nop{}, "s3").ProcessBatch(context.Background(), batch)
	assert.Error(t, err)

	failing := &memStorage{err: errors.New("down")}
	err = NewArchiveProcessor(nil, failing, metrics.Nop{}, config.BackendClickHouse).ProcessBatch(context.Background(), batch)
	assert.Error(t, err)
}

func TestBarsHandler(t *testing.T) {
	store := &memStorage{}
	h := NewBarsHandler("daily_bars", store, metrics.Nop{})
	assert.Equal(t, "daily_bars", h.Topic())

	msg, err := json.Marshal(models.ArchivedBar{Symbol: "AAPL", Date: "2024-01-02", Timestamp: jan2, Close: null.FloatFrom(185.64)})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, store.bars, 1)
	assert.Equal(t, 185.64, store.bars[0].Close.Float64)
	assert.False(t, store.bars[0].Open.Valid)

	assert.Error(t, h.Handle(context.Background(), []byte("{not json")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL"}`)))
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []RefreshPayload
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if msgType != RefreshJobType {
		return errors.New("unexpected type")
	}
	q.msgs = append(q.msgs, payload.(RefreshPayload))
	return nil
}

func TestRefresherEnqueuesOncePerTick(t *testing.T) {
	q := &fakeQueue{}
	lock := cache.NewMemoryCache()
	defer lock.Close()

	r, err := NewRefresher("30 17 * * 1-5", []string{"AAPL", "MSFT"}, q, lock, nil)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 22, 30, 5, 0, time.UTC) }

	n, err := r.Enqueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Enqueue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "second instance skips the same tick")
	assert.Equal(t, []RefreshPayload{{Symbol: "AAPL"}, {Symbol: "MSFT"}}, q.msgs)
}

func TestRefresherRejectsBadSchedule(t *testing.T) {
	_, err := NewRefresher("every day", nil, &fakeQueue{}, nil, nil)
	assert.Error(t, err)
}

func TestRefreshJobLoadsMaxHistory(t *testing.T) {
	md := newMarket()
	arch := &fakeArchiver{}
	job := NewRefreshJob(NewHistoryLoader(md, arch, metrics.Nop{}, 1), "service-key")
	assert.Equal(t, RefreshJobType, job.Type())

	require.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"symbol":"aapl"}`)))
	assert.Equal(t, []string{"service-key"}, md.keys)
	assert.Equal(t, 2, arch.offered["AAPL"])

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{"symbol":"not a ticker"}`)))
}
