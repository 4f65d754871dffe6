package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"DripView/internal/domain/models"
	drepo "DripView/internal/domain/repository"
	xhttp "DripView/pkg/http"
	applogger "DripView/pkg/logger"
	"DripView/pkg/metrics"
)

const chartPath = "/stock/v3/get-chart"

type Config struct {
	BaseURL    string
	Host       string
	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Retries < 1 {
		c.Retries = 1
	}
	if c.Backoff <= 0 {
		c.Backoff = 300 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 5
	}
	if c.BreakerFailureRatio <= 0 {
		c.BreakerFailureRatio = 0.5
	}
	if c.BreakerOpenFor <= 0 {
		c.BreakerOpenFor = 30 * time.Second
	}
}

type Option func(*Client)

// WithHTTPClient swaps the transport client, used by tests.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClock overrides time.Now for open-ended custom spans.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// Client implements repository.MarketData against the RapidAPI Yahoo
// chart endpoint.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	breaker *gobreaker.CircuitBreaker[*xhttp.Response]
	metrics drepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func New(cfg Config, m drepo.Metrics, log *applogger.Logger, opts ...Option) *Client {
	cfg.setDefaults()
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = applogger.NewNop()
	}
	c := &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent("dripview/1.0")),
		metrics: m,
		log:     log.With("yahoo"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*xhttp.Response](gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			var pe *ProviderError
			if errors.As(err, &pe) {
				return !pe.Retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	return c
}

// FetchDailyBars returns the daily bars for symbol over span.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, span models.Span, apiKey string) ([]models.DailyBar, error) {
	body, err := c.get(ctx, AreaCandles, c.query(symbol, span, false), apiKey)
	if err != nil {
		return nil, err
	}
	res, err := decodeChart(AreaCandles, symbol, body)
	if err != nil {
		return nil, err
	}
	return res.bars(), nil
}

// FetchEvents returns splits and dividends for symbol over span, each
// sorted by timestamp.
func (c *Client) FetchEvents(ctx context.Context, symbol string, span models.Span, apiKey string) (models.CorporateEvents, error) {
	body, err := c.get(ctx, AreaEvents, c.query(symbol, span, true), apiKey)
	if err != nil {
		return models.CorporateEvents{}, err
	}
	res, err := decodeChart(AreaEvents, symbol, body)
	if err != nil {
		return models.CorporateEvents{}, err
	}
	return res.events(), nil
}

func (c *Client) query(symbol string, span models.Span, events bool) map[string][]string {
	q := map[string][]string{
		"symbol":   {symbol},
		"interval": {"1d"},
	}
	if span.IsCustom() {
		p2 := span.Period2
		if p2 <= 0 {
			p2 = c.now().Unix()
		}
		q["period1"] = []string{strconv.FormatInt(span.Period1, 10)}
		q["period2"] = []string{strconv.FormatInt(p2, 10)}
	} else {
		r := span.Range
		if r == "" {
			r = models.DefaultRange()
		}
		q["range"] = []string{string(r)}
	}
	if events {
		q["events"] = []string{"div,splits"}
	}
	return q
}

// get performs the request with retries on 429, 5xx and transport errors.
// Every attempt goes through the circuit breaker.
func (c *Client) get(ctx context.Context, area Area, query map[string][]string, apiKey string) ([]byte, error) {
	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.cfg.BaseURL + chartPath,
		QueryParams: query,
		Headers: map[string]string{
			"x-rapidapi-key":  apiKey,
			"x-rapidapi-host": c.cfg.Host,
		},
	}

	backoff := c.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("yahoo %s: %w", area, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		body, err := c.attempt(ctx, area, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Retryable() || ctx.Err() != nil {
			break
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		c.log.Debug("provider attempt failed",
			applogger.String("area", string(area)),
			applogger.Int("attempt", attempt+1),
			applogger.Int("status", pe.Status),
		)
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, area Area, opts *xhttp.RequestOptions) ([]byte, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*xhttp.Response, error) {
		resp, err := c.http.Send(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ProviderError{
				Area:    area,
				Message: fmt.Sprintf("Yahoo provider %s transport error", area),
				Err:     err,
			}
		}
		if !resp.OK() {
			pe := statusError(area, resp.StatusCode, resp.Body)
			if resp.StatusCode == http.StatusNotFound {
				if _, derr := decodeChart(area, opts.QueryParams["symbol"][0], resp.Body); errors.Is(derr, ErrSymbolNotFound) {
					pe.Err = ErrSymbolNotFound
				}
			}
			return resp, pe
		}
		return resp, nil
	})
	c.metrics.RecordLatency("provider_"+string(area), time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.RecordProviderRequest(string(area), strconv.Itoa(resp.StatusCode))
		return resp.Body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.RecordProviderRequest(string(area), "circuit_open")
		return nil, &ProviderError{
			Area:    area,
			Status:  http.StatusServiceUnavailable,
			Message: fmt.Sprintf("Yahoo provider %s unavailable: circuit breaker open", area),
			Err:     err,
		}
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status > 0 {
		c.metrics.RecordProviderRequest(string(area), strconv.Itoa(pe.Status))
	} else {
		c.metrics.RecordProviderRequest(string(area), "error")
	}
	return nil, err
}
